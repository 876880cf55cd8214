// Package docs holds the Swagger description served at /swagger/*.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/tasks": {
            "get": {
                "tags": ["tasks"],
                "summary": "Get all tasks",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.CollectionResponse"}}}
            },
            "post": {
                "tags": ["tasks"],
                "summary": "Add a task",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/ports.CreateTaskRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ports.TaskResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ports.ErrorResponse"}}
                }
            }
        },
        "/tasks/{date}": {
            "get": {
                "tags": ["tasks"],
                "summary": "Get the tasks of a date",
                "parameters": [{"in": "path", "name": "date", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.DayResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ports.ErrorResponse"}}
                }
            }
        },
        "/tasks/{id}": {
            "delete": {
                "tags": ["tasks"],
                "summary": "Delete a task",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.TaskResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ports.ErrorResponse"}}
                }
            }
        },
        "/tasks/{id}/status": {
            "patch": {
                "tags": ["tasks"],
                "summary": "Toggle or set completion",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "request", "schema": {"$ref": "#/definitions/ports.UpdateStatusRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.TaskResponse"}}}
            }
        },
        "/export": {
            "get": {
                "tags": ["transfer"],
                "summary": "Export all tasks as markdown",
                "produces": ["text/markdown"],
                "responses": {"200": {"description": "Markdown document"}}
            }
        },
        "/import": {
            "post": {
                "tags": ["transfer"],
                "summary": "Import a markdown document",
                "consumes": ["text/markdown", "multipart/form-data"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.ImportResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ports.ErrorResponse"}}
                }
            }
        },
        "/sync/status": {
            "get": {
                "tags": ["sync"],
                "summary": "Sync status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.SyncStatus"}}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/ports.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.AuthResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ports.ErrorResponse"}}
                }
            }
        },
        "/account": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["account"],
                "summary": "Delete the account",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ports.MessageResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/ports.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "entities.Task": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "content": {"type": "string"},
                "isCompleted": {"type": "boolean"},
                "createdAt": {"type": "string"},
                "completedAt": {"type": "string"},
                "priority": {"type": "string", "enum": ["none", "low", "medium", "high"]},
                "date": {"type": "string"},
                "hasReminder": {"type": "boolean"}
            }
        },
        "ports.CreateTaskRequest": {
            "type": "object",
            "required": ["content"],
            "properties": {
                "content": {"type": "string"},
                "priority": {"type": "string", "enum": ["none", "low", "medium", "high"]},
                "date": {"type": "string", "example": "2024-06-01"},
                "hasReminder": {"type": "boolean"}
            }
        },
        "ports.UpdateStatusRequest": {
            "type": "object",
            "properties": {"completed": {"type": "boolean"}}
        },
        "ports.TaskResponse": {
            "type": "object",
            "properties": {
                "task": {"$ref": "#/definitions/entities.Task"},
                "sync": {"$ref": "#/definitions/ports.SyncStatus"}
            }
        },
        "ports.CollectionResponse": {
            "type": "object",
            "properties": {
                "activeDate": {"type": "string"},
                "revision": {"type": "integer"},
                "tasks": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/entities.Task"}}}
            }
        },
        "ports.DayResponse": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "tasks": {"type": "array", "items": {"$ref": "#/definitions/entities.Task"}}
            }
        },
        "ports.ImportResponse": {
            "type": "object",
            "properties": {"imported": {"type": "integer"}, "total": {"type": "integer"}}
        },
        "ports.SyncStatus": {
            "type": "object",
            "properties": {
                "revision": {"type": "integer"},
                "localRevision": {"type": "integer"},
                "remoteRevision": {"type": "integer"},
                "signedIn": {"type": "boolean"},
                "userId": {"type": "string"},
                "remoteEnabled": {"type": "boolean"},
                "pushInFlight": {"type": "boolean"},
                "lastLocalError": {"type": "string"},
                "lastRemoteError": {"type": "string"},
                "lastRemoteSyncedAt": {"type": "string"}
            }
        },
        "ports.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "ports.AuthResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"}
            }
        },
        "ports.MessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "ports.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "details": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type 'Bearer' followed by a space and JWT token"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "Daybook API",
	Description:      "Day-based task list with local-first storage and optional remote sync",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
