package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academic Record Workflow API",
        "description": "Grade computation, submission pipeline, audit trail and disciplinary case workflows",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Grades", "description": "Grade entry and summary computation"},
        {"name": "Audits", "description": "Grade change ledger and review"},
        {"name": "Submissions", "description": "Grade distribution pipeline"},
        {"name": "Sync", "description": "Distributed report reconciliation"},
        {"name": "Cases", "description": "Disciplinary case workflow"}
    ],
    "paths": {
        "/grades": {
            "post": {
                "tags": ["Grades"],
                "summary": "Record a grade value",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/summary": {
            "get": {
                "tags": ["Grades"],
                "summary": "Compute a subject summary grade",
                "parameters": [
                    {"name": "term_id", "in": "query", "type": "string", "required": true},
                    {"name": "class_id", "in": "query", "type": "string", "required": true},
                    {"name": "student_id", "in": "query", "type": "string", "required": true},
                    {"name": "subject_id", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/report-card/{student_id}": {
            "get": {
                "tags": ["Grades"],
                "summary": "Assemble a student report card",
                "parameters": [
                    {"name": "student_id", "in": "path", "type": "string", "required": true},
                    {"name": "term_id", "in": "query", "type": "string", "required": true},
                    {"name": "class_id", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audits/students/{student_id}": {
            "get": {
                "tags": ["Audits"],
                "summary": "List a student's grade change history",
                "parameters": [
                    {"name": "student_id", "in": "path", "type": "string", "required": true},
                    {"name": "term_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audits/pending": {
            "get": {
                "tags": ["Audits"],
                "summary": "List grade changes awaiting review",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audits/{id}/review": {
            "post": {
                "tags": ["Audits"],
                "summary": "Approve or reject a pending grade change",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audits/consistency": {
            "get": {
                "tags": ["Audits"],
                "summary": "Cross-check grade cells against the ledger",
                "parameters": [
                    {"name": "term_id", "in": "query", "type": "string", "required": true},
                    {"name": "class_id", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/homeroom": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Distribute class grades to homeroom teachers",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitClassRequest"}}
                ],
                "responses": {
                    "200": {"description": "Partial-success result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/parents": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Broadcast report cards to guardians",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BroadcastRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions": {
            "get": {
                "tags": ["Submissions"],
                "summary": "List submission records for a class",
                "parameters": [
                    {"name": "term_id", "in": "query", "type": "string", "required": true},
                    {"name": "class_id", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/students/{student_id}": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Get one student's submission record",
                "parameters": [
                    {"name": "student_id", "in": "path", "type": "string", "required": true},
                    {"name": "term_id", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sync/status": {
            "get": {
                "tags": ["Sync"],
                "summary": "Check whether distributed reports are stale",
                "parameters": [
                    {"name": "term_id", "in": "query", "type": "string", "required": true},
                    {"name": "class_id", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sync/resync": {
            "post": {
                "tags": ["Sync"],
                "summary": "Advance the reconciliation mark for a scope",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResyncRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Nothing distributed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases": {
            "post": {
                "tags": ["Cases"],
                "summary": "Open a disciplinary case",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCaseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Cases"],
                "summary": "List disciplinary cases",
                "parameters": [
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "class_id", "in": "query", "type": "string"},
                    {"name": "term_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases/{id}": {
            "get": {
                "tags": ["Cases"],
                "summary": "Get one disciplinary case",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Cases"],
                "summary": "Remove a disciplinary case",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Removed"}
                }
            }
        },
        "/cases/{id}/advance": {
            "post": {
                "tags": ["Cases"],
                "summary": "Advance a case to its next status",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdvanceCaseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RecordGradeRequest": {
            "type": "object",
            "required": ["term_id", "student_id", "subject_id", "class_id", "component_type", "value"],
            "properties": {
                "term_id": {"type": "string"},
                "student_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "class_id": {"type": "string"},
                "component_type": {"type": "string"},
                "value": {"type": "number"},
                "reason": {"type": "string"},
                "lock": {"type": "boolean"}
            }
        },
        "ReviewRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"}
            }
        },
        "SubmitClassRequest": {
            "type": "object",
            "required": ["term_id", "class_id"],
            "properties": {
                "term_id": {"type": "string"},
                "class_id": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "BroadcastRequest": {
            "type": "object",
            "required": ["term_id", "class_id"],
            "properties": {
                "term_id": {"type": "string"},
                "class_id": {"type": "string"}
            }
        },
        "ResyncRequest": {
            "type": "object",
            "required": ["term_id", "class_id"],
            "properties": {
                "term_id": {"type": "string"},
                "class_id": {"type": "string"}
            }
        },
        "CreateCaseRequest": {
            "type": "object",
            "required": ["student_id", "class_id", "term_id", "title"],
            "properties": {
                "student_id": {"type": "string"},
                "class_id": {"type": "string"},
                "term_id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "AdvanceCaseRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string"}
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
                "meta": {"type": "object"}
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
