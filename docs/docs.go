// Package docs registers the swagger spec served at /swagger/index.html.
// Keep it in sync with the handler annotations in internal/http.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "List all orders",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/service.OrderView"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "post": {
                "description": "Colors are resolved against the catalog and frozen on the order.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Create order",
                "parameters": [
                    {"description": "Order", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.CreateOrderInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Order"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/orders/email/{email}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Orders by customer email",
                "parameters": [
                    {"type": "string", "description": "Customer email", "name": "email", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/service.OrderView"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/orders/notify": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Sends the in-progress email below 100% and the ready email at 100%. Stored progress is not changed.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Notify customer about variant progress",
                "parameters": [
                    {"description": "Notification", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.NotifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "502": {"description": "Bad Gateway", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Get order by id",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.OrderView"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["orders"],
                "description": "Allowed to staff and to the customer whose token email matches the order email.",
                "summary": "Delete order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpapi.deleteOrderResp"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "403": {"description": "Forbidden", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Progress and tailor assignments are merged key by key; an empty tailor name clears the assignment.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Update order",
                "parameters": [
                    {"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true},
                    {"description": "Patch", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.OrderPatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Order"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "List products",
                "parameters": [
                    {"type": "string", "description": "Title contains", "name": "q", "in": "query"},
                    {"type": "number", "description": "Min price", "name": "min_price", "in": "query"},
                    {"type": "number", "description": "Max price", "name": "max_price", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Product"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Create product",
                "parameters": [
                    {"description": "Product", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.productReq"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Product"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Get product by id",
                "parameters": [
                    {"type": "string", "description": "Product ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Product"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Existing orders keep the colors frozen at creation.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Update product",
                "parameters": [
                    {"type": "string", "description": "Product ID", "name": "id", "in": "path", "required": true},
                    {"description": "Product", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpapi.productReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Product"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "Delete product",
                "parameters": [
                    {"type": "string", "description": "Product ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "domain.Address": {
            "type": "object",
            "properties": {
                "city": {"type": "string"},
                "country": {"type": "string"},
                "state": {"type": "string"},
                "street": {"type": "string"},
                "zipcode": {"type": "string"}
            }
        },
        "domain.Color": {
            "type": "object",
            "properties": {
                "colorName": {"type": "string"},
                "image": {"type": "string"}
            }
        },
        "domain.LineItem": {
            "type": "object",
            "properties": {
                "color": {"$ref": "#/definitions/domain.Color"},
                "productId": {"type": "string"},
                "quantity": {"type": "integer"}
            }
        },
        "domain.Order": {
            "type": "object",
            "properties": {
                "address": {"$ref": "#/definitions/domain.Address"},
                "createdAt": {"type": "string"},
                "email": {"type": "string"},
                "id": {"type": "string"},
                "isDelivered": {"type": "boolean"},
                "isPaid": {"type": "boolean"},
                "name": {"type": "string"},
                "phone": {"type": "string"},
                "productProgress": {"type": "object", "additionalProperties": {"type": "integer"}},
                "products": {"type": "array", "items": {"$ref": "#/definitions/domain.LineItem"}},
                "tailorAssignments": {"type": "object", "additionalProperties": {"type": "string"}},
                "totalPrice": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "domain.Product": {
            "type": "object",
            "properties": {
                "colors": {"type": "array", "items": {"$ref": "#/definitions/domain.Color"}},
                "coverImage": {"type": "string"},
                "createdAt": {"type": "string"},
                "id": {"type": "string"},
                "price": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "httpapi.deleteOrderResp": {
            "type": "object",
            "properties": {
                "deletedOrder": {"$ref": "#/definitions/domain.Order"},
                "message": {"type": "string"}
            }
        },
        "httpapi.productReq": {
            "type": "object",
            "properties": {
                "colors": {"type": "array", "items": {"$ref": "#/definitions/domain.Color"}},
                "coverImage": {"type": "string"},
                "id": {"type": "string"},
                "price": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "service.CreateOrderInput": {
            "type": "object",
            "properties": {
                "address": {"$ref": "#/definitions/domain.Address"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "phone": {"type": "string"},
                "products": {"type": "array", "items": {"$ref": "#/definitions/service.RequestedItem"}},
                "totalPrice": {"type": "string"}
            }
        },
        "service.LineItemView": {
            "type": "object",
            "properties": {
                "color": {"$ref": "#/definitions/domain.Color"},
                "colors": {"type": "array", "items": {"$ref": "#/definitions/domain.Color"}},
                "coverImage": {"type": "string"},
                "productId": {"type": "string"},
                "quantity": {"type": "integer"},
                "title": {"type": "string"}
            }
        },
        "service.NotifyRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "orderId": {"type": "string"},
                "productKey": {"type": "string"},
                "progress": {"type": "integer"}
            }
        },
        "service.OrderPatch": {
            "type": "object",
            "properties": {
                "isDelivered": {"type": "boolean"},
                "isPaid": {"type": "boolean"},
                "productProgress": {"type": "object", "additionalProperties": {"type": "integer"}},
                "tailorAssignments": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "service.OrderView": {
            "type": "object",
            "properties": {
                "address": {"$ref": "#/definitions/domain.Address"},
                "createdAt": {"type": "string"},
                "email": {"type": "string"},
                "id": {"type": "string"},
                "isDelivered": {"type": "boolean"},
                "isPaid": {"type": "boolean"},
                "name": {"type": "string"},
                "phone": {"type": "string"},
                "productProgress": {"type": "object", "additionalProperties": {"type": "integer"}},
                "products": {"type": "array", "items": {"$ref": "#/definitions/service.LineItemView"}},
                "tailorAssignments": {"type": "object", "additionalProperties": {"type": "string"}},
                "totalPrice": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "service.RequestedItem": {
            "type": "object",
            "properties": {
                "color": {"$ref": "#/definitions/domain.Color"},
                "productId": {"type": "string"},
                "quantity": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Atelier API",
	Description:      "Boutique orders with per-variant tailoring progress and customer notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
