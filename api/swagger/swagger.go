package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academy Retake API",
        "description": "Retake lifecycle and audit-trail engine",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Retakes", "description": "Retake assignment lifecycle"},
        {"name": "History", "description": "Append-only audit trail"},
        {"name": "Catalog", "description": "External catalogs consumed by the engine"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/retakes": {
            "get": {
                "tags": ["Retakes"],
                "summary": "List retake assignments with per-student rollups",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "examId", "in": "query", "type": "string"},
                    {"name": "managementStatus", "in": "query", "type": "string"},
                    {"name": "scheduledDate", "in": "query", "type": "string"},
                    {"name": "studentName", "in": "query", "type": "string"},
                    {"name": "hideCompleted", "in": "query", "type": "boolean"},
                    {"name": "minIncomplete", "in": "query", "type": "integer"},
                    {"name": "minTotal", "in": "query", "type": "integer"},
                    {"name": "minPostpones", "in": "query", "type": "integer"},
                    {"name": "minAbsences", "in": "query", "type": "integer"},
                    {"name": "minFlakiness", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Retakes"],
                "summary": "Assign a retake to a batch of students",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignBatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/retakes/export": {
            "get": {
                "tags": ["Retakes"],
                "summary": "Export the filtered retake list as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/retakes/history": {
            "get": {
                "tags": ["History"],
                "summary": "Global activity feed, newest first",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/retakes/{id}": {
            "get": {
                "tags": ["Retakes"],
                "summary": "Get one retake assignment with its student and exam resolved",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Retakes"],
                "summary": "Delete a retake and its audit trail (irreversible)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "confirm", "in": "query", "required": true, "type": "boolean"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/retakes/{id}/postpone": {
            "post": {
                "tags": ["Retakes"],
                "summary": "Postpone (penalized reschedule, increments postpone count)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PostponeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/retakes/{id}/absent": {
            "post": {
                "tags": ["Retakes"],
                "summary": "Mark a pending retake as absent",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/NoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/retakes/{id}/complete": {
            "post": {
                "tags": ["Retakes"],
                "summary": "Complete a retake (terminal)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/NoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/retakes/{id}/date": {
            "post": {
                "tags": ["Retakes"],
                "summary": "Correct the scheduled date (no penalty)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EditDateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/retakes/{id}/management-status": {
            "post": {
                "tags": ["Retakes"],
                "summary": "Change the management status label",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangeManagementStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/retakes/{id}/history": {
            "get": {
                "tags": ["History"],
                "summary": "Audit trail of one retake, oldest first",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/retakes/{id}/consistency": {
            "get": {
                "tags": ["History"],
                "summary": "Replay the audit trail against the stored state",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/management-statuses": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List the ordered management status catalog",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RetakeAssignment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "studentId": {"type": "string"},
                "examId": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "ABSENT", "COMPLETED"]},
                "scheduledDate": {"type": "string"},
                "postponeCount": {"type": "integer"},
                "absentCount": {"type": "integer"},
                "managementStatus": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "HistoryEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "retakeId": {"type": "string"},
                "action": {"type": "string", "enum": ["ASSIGN", "POSTPONE", "ABSENT", "COMPLETE", "DATE_EDIT", "MANAGEMENT_STATUS_CHANGE"]},
                "previousDate": {"type": "string"},
                "newDate": {"type": "string"},
                "previousStatus": {"type": "string"},
                "newStatus": {"type": "string"},
                "previousManagementStatus": {"type": "string"},
                "newManagementStatus": {"type": "string"},
                "note": {"type": "string"},
                "performedBy": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        },
        "StudentRollup": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "studentName": {"type": "string"},
                "totalCount": {"type": "integer"},
                "incompleteCount": {"type": "integer"},
                "postponeSum": {"type": "integer"},
                "absentSum": {"type": "integer"},
                "flakinessScore": {"type": "integer"}
            }
        },
        "AssignBatchRequest": {
            "type": "object",
            "properties": {
                "examId": {"type": "string"},
                "studentIds": {"type": "array", "items": {"type": "string"}},
                "scheduledDate": {"type": "string"},
                "note": {"type": "string"}
            },
            "required": ["examId", "studentIds", "scheduledDate"]
        },
        "PostponeRequest": {
            "type": "object",
            "properties": {
                "newDate": {"type": "string"},
                "note": {"type": "string"}
            },
            "required": ["newDate"]
        },
        "EditDateRequest": {
            "type": "object",
            "properties": {
                "newDate": {"type": "string"},
                "note": {"type": "string"}
            },
            "required": ["newDate"]
        },
        "NoteRequest": {
            "type": "object",
            "properties": {
                "note": {"type": "string"}
            }
        },
        "ChangeManagementStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "note": {"type": "string"}
            },
            "required": ["status"]
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
