// Package docs is generated by swag init. Regenerate it rather than editing by hand:
//
//	swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/ask": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Conversation"],
                "summary": "Ask a question about a filebook",
                "parameters": [
                    {"description": "Question and target filebook", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.AskRequest"}}
                ],
                "responses": {
                    "200": {"description": "Answer with sources", "schema": {"$ref": "#/definitions/api.AskResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "403": {"description": "No access or quota reached", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/ask/stream": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["text/plain"],
                "tags": ["Conversation"],
                "summary": "Ask a question and stream the answer",
                "parameters": [
                    {"description": "Question and target filebook", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.AskRequest"}}
                ],
                "responses": {
                    "200": {"description": "Answer text, streamed", "schema": {"type": "string"}},
                    "403": {"description": "No access or quota reached", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/upload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Ingestion"],
                "summary": "Upload a document into a filebook",
                "parameters": [
                    {"type": "string", "description": "Target filebook", "name": "collection_id", "in": "formData", "required": true},
                    {"type": "file", "description": "PDF, DOCX, DOC, XLSX, XLS, CSV or TXT, at most 2MB", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "Document indexed", "schema": {"$ref": "#/definitions/api.UploadResponse"}},
                    "400": {"description": "Validation or parse error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/collections": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Filebooks"],
                "summary": "List the caller's filebooks",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.CollectionResponse"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Filebooks"],
                "summary": "Create a filebook",
                "parameters": [
                    {"description": "Filebook name", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.CreateCollectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/api.CollectionResponse"}},
                    "403": {"description": "Filebook limit reached", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/collections/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Filebooks"],
                "summary": "Delete a filebook with its documents, vectors and messages",
                "parameters": [{"type": "string", "description": "Filebook ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/collections/{id}/documents": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Filebooks"],
                "summary": "List the documents of a filebook",
                "parameters": [{"type": "string", "description": "Filebook ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.DocumentResponse"}}}
                }
            }
        },
        "/collections/{id}/documents/{docId}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["Filebooks"],
                "summary": "Delete one document and its vectors",
                "parameters": [
                    {"type": "string", "description": "Filebook ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Document ID", "name": "docId", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/collections/{id}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Filebooks"],
                "summary": "Recent chat messages of a filebook",
                "parameters": [
                    {"type": "string", "description": "Filebook ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "How many messages", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Oldest first", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.MessageResponse"}}}
                }
            }
        },
        "/usage": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Filebooks"],
                "summary": "Today's usage against the plan limits",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.UsageResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.AskRequest": {
            "type": "object",
            "required": ["collection_id", "question"],
            "properties": {
                "collection_id": {"type": "string"},
                "document_id": {"type": "string"},
                "model": {"type": "string", "example": "gemini-2.5-flash"},
                "question": {"type": "string", "example": "What was Q3 revenue?"}
            }
        },
        "api.AskResponse": {
            "type": "object",
            "properties": {
                "answer": {"type": "string"},
                "model": {"type": "string"},
                "sources": {"type": "array", "items": {"$ref": "#/definitions/api.SourceResponse"}}
            }
        },
        "api.SourceResponse": {
            "type": "object",
            "properties": {
                "chunk_order": {"type": "integer"},
                "doc_name": {"type": "string"},
                "document_id": {"type": "string"},
                "score": {"type": "number"}
            }
        },
        "api.UploadResponse": {
            "type": "object",
            "properties": {
                "chunks_processed": {"type": "integer"},
                "doc_name": {"type": "string"},
                "document_id": {"type": "string"},
                "total_chunks": {"type": "integer"},
                "warning": {"type": "string"}
            }
        },
        "api.CreateCollectionRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {"name": {"type": "string"}}
        },
        "api.CollectionResponse": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "is_featured": {"type": "boolean"},
                "name": {"type": "string"},
                "owner_id": {"type": "string"}
            }
        },
        "api.DocumentResponse": {
            "type": "object",
            "properties": {
                "chunk_count": {"type": "integer"},
                "created_at": {"type": "string"},
                "doc_name": {"type": "string"},
                "document_id": {"type": "string"},
                "format": {"type": "string"}
            }
        },
        "api.MessageResponse": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "model": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "api.UsageResponse": {
            "type": "object",
            "properties": {
                "collections_count": {"type": "integer"},
                "collections_limit": {"type": "integer"},
                "documents_count": {"type": "integer"},
                "documents_limit": {"type": "integer"},
                "plan": {"type": "string"},
                "questions_limit": {"type": "integer"},
                "questions_today": {"type": "integer"}
            }
        },
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/api.OutgoingError"},
                "id": {"type": "string"}
            }
        },
        "api.OutgoingError": {
            "type": "object",
            "properties": {
                "can_retry": {"type": "boolean"},
                "code": {"type": "integer"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Filebook API",
	Description:      "Upload documents into filebooks and ask questions answered from their content.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
