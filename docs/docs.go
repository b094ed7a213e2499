// Package docs registers the OpenAPI document served under /swagger.
// Regenerate from the handler annotations with:
//
//	swag init --v3.1 -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "openapi": "3.1.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "servers": [{"url": "{{.BasePath}}"}],
    "components": {
        "securitySchemes": {
            "BearerAuth": {"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
            "SyncKey": {"type": "apiKey", "in": "header", "name": "x-sync-key"},
            "WorkerKey": {"type": "apiKey", "in": "header", "name": "x-worker-key"}
        }
    },
    "paths": {
        "/health": {"get": {"tags": ["system"], "operationId": "health", "summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}},
        "/system/info": {"get": {"tags": ["system"], "operationId": "getSystemSystemInfo", "summary": "Get system information", "responses": {"200": {"description": "OK"}}}},
        "/system/ping": {"get": {"tags": ["system"], "operationId": "pingSystem", "summary": "Ping the API", "responses": {"200": {"description": "OK"}}}},
        "/invoices": {
            "post": {
                "tags": ["invoices"], "operationId": "submitInvoice", "summary": "Submit an invoice",
                "security": [{"BearerAuth": []}],
                "requestBody": {"content": {"multipart/form-data": {"schema": {
                    "type": "object",
                    "required": ["receptionId", "userId", "xmlFile", "pdfFile"],
                    "properties": {
                        "receptionId": {"type": "string", "format": "uuid"},
                        "userId": {"type": "string", "format": "uuid"},
                        "xmlFile": {"type": "string", "format": "binary"},
                        "pdfFile": {"type": "string", "format": "binary"}
                    }
                }}}},
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}, "500": {"description": "Internal Server Error"}}
            },
            "get": {
                "tags": ["invoices"], "operationId": "listInvoices", "summary": "List my invoices",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "page", "in": "query", "schema": {"type": "integer", "default": 1}},
                    {"name": "page_size", "in": "query", "schema": {"type": "integer", "default": 20, "maximum": 100}},
                    {"name": "order_by", "in": "query", "schema": {"type": "string", "enum": ["created_at", "updated_at", "issue_date", "folio", "total", "sync_status"]}},
                    {"name": "order_dir", "in": "query", "schema": {"type": "string", "enum": ["asc", "desc"]}}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/invoices/{id}": {"get": {
            "tags": ["invoices"], "operationId": "getInvoice", "summary": "Get an invoice",
            "security": [{"BearerAuth": []}],
            "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
            "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
        }},
        "/invoices/{id}/resync": {"post": {
            "tags": ["invoices"], "operationId": "resyncInvoice", "summary": "Requeue an invoice",
            "security": [{"BearerAuth": []}],
            "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
            "responses": {"202": {"description": "Accepted"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}, "503": {"description": "Service Unavailable"}}
        }},
        "/receptions": {"post": {
            "tags": ["receptions"], "operationId": "createReception", "summary": "Record a goods reception",
            "security": [{"BearerAuth": []}],
            "requestBody": {"content": {"application/json": {"schema": {
                "type": "object",
                "required": ["purchaseOrderId", "folio", "date", "articles"],
                "properties": {
                    "purchaseOrderId": {"type": "string", "format": "uuid"},
                    "folio": {"type": "string"},
                    "date": {"type": "string", "format": "date-time"},
                    "articles": {"type": "array", "items": {"type": "object", "properties": {
                        "name": {"type": "string"}, "quantity": {"type": "string"}, "unitPrice": {"type": "string"}
                    }}}
                }
            }}}},
            "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
        }},
        "/receptions/{id}": {"get": {
            "tags": ["receptions"], "operationId": "getReception", "summary": "Get a reception",
            "security": [{"BearerAuth": []}],
            "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}],
            "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
        }},
        "/sync/purchase-orders": {"post": {
            "tags": ["sync"], "operationId": "syncPurchaseOrders", "summary": "Import purchase orders from the ERP",
            "security": [{"SyncKey": []}],
            "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "500": {"description": "Internal Server Error"}}
        }},
        "/workers/reconcile": {"post": {
            "tags": ["workers"], "operationId": "reconcileBatch", "summary": "Reconcile a queue batch",
            "security": [{"WorkerKey": []}],
            "requestBody": {"content": {"application/json": {"schema": {"type": "object"}}}},
            "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "500": {"description": "Internal Server Error"}}
        }}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Supplier Portal API",
	Description:      "Supplier invoice intake, reconciliation and ERP sync",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
