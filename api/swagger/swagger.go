package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Secretaria Online API",
        "description": "School administrative backend",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and session management"},
        {"name": "Students", "description": "Student profiles"},
        {"name": "Courses", "description": "Course and discipline catalog"},
        {"name": "Classes", "description": "Discipline offerings"},
        {"name": "Enrollments", "description": "Enrollment lifecycle"},
        {"name": "Reenrollments", "description": "Semester rollover workflow"},
        {"name": "Documents", "description": "Document upload and review"},
        {"name": "Contracts", "description": "Enrollment contracts"},
        {"name": "Templates", "description": "Contract template management"},
        {"name": "Evaluations", "description": "Assessments and grades"}
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
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll student in a course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Duplicate enrollment"}
                }
            }
        },
        "/enrollments/{id}/status": {
            "put": {
                "tags": ["Enrollments"],
                "summary": "Change enrollment status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "422": {"description": "Transition not allowed"}
                }
            }
        },
        "/reenrollments/process-all": {
            "post": {
                "tags": ["Reenrollments"],
                "summary": "Process global reenrollment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Batch processed"},
                    "401": {"description": "Admin password verification failed"}
                }
            }
        },
        "/reenrollments/contract-preview/{enrollmentId}": {
            "get": {
                "tags": ["Reenrollments"],
                "summary": "Preview the reenrollment contract",
                "parameters": [
                    {"name": "enrollmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Rendered contract"},
                    "403": {"description": "Enrollment owned by another student"},
                    "422": {"description": "Enrollment not pending"}
                }
            }
        },
        "/reenrollments/accept/{enrollmentId}": {
            "post": {
                "tags": ["Reenrollments"],
                "summary": "Accept reenrollment",
                "parameters": [
                    {"name": "enrollmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Enrollment reactivated"},
                    "422": {"description": "Enrollment not pending"}
                }
            }
        },
        "/documents": {
            "post": {
                "tags": ["Documents"],
                "summary": "Upload document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "type", "in": "formData", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Invalid file"}
                }
            }
        },
        "/documents/{id}/review": {
            "put": {
                "tags": ["Documents"],
                "summary": "Review document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Reviewed"},
                    "422": {"description": "Already reviewed"}
                }
            }
        },
        "/contracts/generate": {
            "post": {
                "tags": ["Contracts"],
                "summary": "Generate contract PDF",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"}
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
