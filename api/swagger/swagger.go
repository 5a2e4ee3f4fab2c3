package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Results API",
        "description": "Grade derivation, result reports and data consistency for secondary school exams",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Grading", "description": "Grade and division tables"},
        {"name": "Results", "description": "Marks entry and correction"},
        {"name": "Reports", "description": "Student and class result reports"},
        {"name": "Consistency", "description": "Result data checks and repairs"}
    ],
    "paths": {
        "/grading/compute": {
            "post": {
                "tags": ["Grading"],
                "summary": "Derive grade and points for marks",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ComputeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Marks out of range or unknown level", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Grading table cannot answer", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grading/tables": {
            "get": {
                "tags": ["Grading"],
                "summary": "Active grading tables",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grading/tables/{level}/grades": {
            "put": {
                "tags": ["Grading"],
                "summary": "Replace the grade table of a level",
                "parameters": [
                    {"name": "level", "in": "path", "required": true, "type": "string", "enum": ["O_LEVEL", "A_LEVEL"]},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GradeTableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Table rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grading/tables/{level}/divisions": {
            "put": {
                "tags": ["Grading"],
                "summary": "Replace the division table of a level",
                "parameters": [
                    {"name": "level", "in": "path", "required": true, "type": "string", "enum": ["O_LEVEL", "A_LEVEL"]},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DivisionTableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Table rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results": {
            "get": {
                "tags": ["Results"],
                "summary": "List recorded results",
                "parameters": [
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "exam_id", "in": "query", "type": "string"},
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "education_level", "in": "query", "type": "string", "enum": ["O_LEVEL", "A_LEVEL"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Neither student_id nor exam_id given", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Results"],
                "summary": "Record marks for a subject",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordMarksRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Result already recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/{id}/marks": {
            "put": {
                "tags": ["Results"],
                "summary": "Correct the marks of a result",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CorrectMarksRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/{id}": {
            "delete": {
                "tags": ["Results"],
                "summary": "Delete a result",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/students/{studentId}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Student result report",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "exam_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student or exam not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/classes/{classId}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Class result report",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "exam_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Class or exam not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consistency/checks": {
            "post": {
                "tags": ["Consistency"],
                "summary": "Run every consistency check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consistency/checks/latest": {
            "get": {
                "tags": ["Consistency"],
                "summary": "Most recent consistency report",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No report cached", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consistency/checks/{kind}": {
            "post": {
                "tags": ["Consistency"],
                "summary": "Run a single consistency check",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["duplicates", "derivations", "missing-fields", "orphans"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/consistency/repair": {
            "post": {
                "tags": ["Consistency"],
                "summary": "Repair duplicates, derivations and orphans",
                "parameters": [
                    {"name": "dry_run", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Repair already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "499": {"description": "Cancelled, partial report attached", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ComputeRequest": {
            "type": "object",
            "required": ["marks", "education_level"],
            "properties": {
                "marks": {"type": "number"},
                "education_level": {"type": "string", "enum": ["O_LEVEL", "A_LEVEL"]}
            }
        },
        "RecordMarksRequest": {
            "type": "object",
            "required": ["student_id", "exam_id", "subject_id", "marks"],
            "properties": {
                "student_id": {"type": "string"},
                "exam_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "education_level": {"type": "string", "enum": ["O_LEVEL", "A_LEVEL"]},
                "marks": {"type": "number"},
                "is_principal": {"type": "boolean"}
            }
        },
        "CorrectMarksRequest": {
            "type": "object",
            "required": ["marks"],
            "properties": {
                "marks": {"type": "number"},
                "is_principal": {"type": "boolean"}
            }
        },
        "GradeBand": {
            "type": "object",
            "properties": {
                "grade": {"type": "string"},
                "min_marks": {"type": "integer"},
                "max_marks": {"type": "integer"},
                "points": {"type": "integer"}
            }
        },
        "DivisionBand": {
            "type": "object",
            "properties": {
                "division": {"type": "string"},
                "min_points": {"type": "integer"},
                "max_points": {"type": "integer"}
            }
        },
        "GradeTableRequest": {
            "type": "object",
            "properties": {
                "bands": {"type": "array", "items": {"$ref": "#/definitions/GradeBand"}}
            }
        },
        "DivisionTableRequest": {
            "type": "object",
            "properties": {
                "bands": {"type": "array", "items": {"$ref": "#/definitions/DivisionBand"}}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
