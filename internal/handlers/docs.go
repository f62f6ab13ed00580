package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
)

func queryParam(name, description string, schema map[string]interface{}, required bool) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    required,
		"schema":      schema,
	}
}

func str() map[string]interface{} { return map[string]interface{}{"type": "string"} }
func integer() map[string]interface{} { return map[string]interface{}{"type": "integer"} }
func number() map[string]interface{} { return map[string]interface{}{"type": "number"} }

func object(properties map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": properties}
}

func array(items map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": items}
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

func paginated(item map[string]interface{}) map[string]interface{} {
	return object(map[string]interface{}{
		"data":        array(item),
		"total":       integer(),
		"page":        integer(),
		"limit":       integer(),
		"total_pages": integer(),
	})
}

var errorResponse = jsonResponse("Error", object(map[string]interface{}{
	"error":   str(),
	"message": str(),
	"code":    integer(),
}))

var pageParams = []map[string]interface{}{
	queryParam("page", "Page number (default: 1)", map[string]interface{}{"type": "integer", "default": 1}, false),
	queryParam("limit", "Records per page (default: 100, max: 1000)", map[string]interface{}{"type": "integer", "default": 100}, false),
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the EV dashboard API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	regionSchema := object(map[string]interface{}{
		"sido":              str(),
		"region_name":       str(),
		"subsidy_passenger": integer(),
		"subsidy_micro":     integer(),
	})
	contactSchema := object(map[string]interface{}{
		"sido":        str(),
		"region_name": str(),
		"department":  str(),
		"phone":       str(),
	})
	faqItemSchema := object(map[string]interface{}{
		"id":                   integer(),
		"category":             str(),
		"question":             str(),
		"highlighted_question": str(),
		"answer":               str(),
	})
	rowSchema := object(map[string]interface{}{
		"charge_type": str(),
		"hour":        integer(),
		"mean_load":   number(),
		"congestion":  map[string]interface{}{"type": "string", "enum": []string{"LOW", "MEDIUM", "HIGH"}},
		"label":       str(),
	})
	chargeType := queryParam("charge_type", "Charge type, e.g. 급속 or 완속", str(), false)

	doc := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "EV Dashboard API",
			"description": "Electric-vehicle subsidies, manufacturer FAQs and hourly charging congestion",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/subsidies/regions": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "List local purchase subsidies",
					"parameters": append([]map[string]interface{}{queryParam("q", "Keyword matched against sido and region name", str(), false)}, pageParams...),
					"responses": map[string]interface{}{
						"200": jsonResponse("Region subsidies in 만원", paginated(regionSchema)),
					},
				},
			},
			"/api/subsidies/models/options": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Cascading model selection",
					"description": "Options for region → vehicle type → manufacturer → model; a level stays empty until its parent is given",
					"parameters": []map[string]interface{}{
						queryParam("region", "Selected region", str(), false),
						queryParam("vehicle_type", "Selected vehicle type", str(), false),
						queryParam("manufacturer", "Selected manufacturer", str(), false),
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Available options", object(map[string]interface{}{
							"regions":       array(str()),
							"vehicle_types": array(str()),
							"manufacturers": array(str()),
							"models":        array(str()),
						})),
					},
				},
			},
			"/api/subsidies/models/detail": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Subsidy of one model in one region",
					"parameters": []map[string]interface{}{
						queryParam("region", "Region", str(), true),
						queryParam("vehicle_type", "Vehicle type", str(), true),
						queryParam("manufacturer", "Manufacturer", str(), true),
						queryParam("model", "Model name", str(), true),
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Subsidy amounts in 만원", object(map[string]interface{}{
							"gov_subsidy":   integer(),
							"local_subsidy": integer(),
							"total_subsidy": integer(),
							"display":       object(map[string]interface{}{"gov": str(), "local": str(), "total": str()}),
						})),
						"400": errorResponse,
						"404": errorResponse,
					},
				},
			},
			"/api/subsidies/faq": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Subsidy programme FAQ",
					"parameters": []map[string]interface{}{queryParam("tag", "Tag filter; 전체 or empty for all", str(), false)},
					"responses": map[string]interface{}{
						"200": jsonResponse("Tags and matching entries", object(map[string]interface{}{
							"tags": array(str()),
							"tag":  str(),
							"items": array(object(map[string]interface{}{
								"page": integer(), "faq_order": integer(), "tag": str(), "question": str(), "answer": str(),
							})),
						})),
					},
				},
			},
			"/api/contacts": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Local subsidy contacts",
					"parameters": append([]map[string]interface{}{queryParam("q", "Keyword matched against sido, region and department", str(), false)}, pageParams...),
					"responses": map[string]interface{}{
						"200": jsonResponse("Contacts sorted by sido and region", paginated(contactSchema)),
					},
				},
			},
			"/api/brands/{brand}/faq": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Search a manufacturer FAQ",
					"description": "Korean keywords such as 충전 or 배터리 also match their English term",
					"parameters": []map[string]interface{}{
						{
							"name":     "brand",
							"in":       "path",
							"required": true,
							"schema":   map[string]interface{}{"type": "string", "enum": []string{"KIA", "BMW", "Tesla", "BYD"}},
						},
						queryParam("q", "Keyword matched against the question", str(), false),
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Matches, grouped by category for KIA and Tesla", object(map[string]interface{}{
							"brand":  str(),
							"count":  integer(),
							"items":  array(faqItemSchema),
							"groups": array(object(map[string]interface{}{"category": str(), "items": array(faqItemSchema)})),
						})),
						"404": errorResponse,
					},
				},
			},
			"/api/congestion": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Hourly congestion table",
					"parameters": []map[string]interface{}{chargeType},
					"responses": map[string]interface{}{
						"200": jsonResponse("Hourly means with levels and per charge type quartiles", object(map[string]interface{}{
							"rows":       array(rowSchema),
							"thresholds": map[string]interface{}{"type": "object", "additionalProperties": object(map[string]interface{}{"q25": number(), "q75": number()})},
						})),
					},
				},
			},
			"/api/congestion/categories": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Charge types present in the load data",
					"responses": map[string]interface{}{
						"200": jsonResponse("Charge types", object(map[string]interface{}{"charge_types": array(str())})),
					},
				},
			},
			"/api/congestion/current": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Congestion for a charge type now",
					"description": "Uses the wall-clock hour of the configured timezone unless hour is given",
					"parameters": []map[string]interface{}{
						queryParam("charge_type", "Charge type", str(), true),
						queryParam("hour", "Hour 0-23", map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 23}, false),
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Congestion level and message", object(map[string]interface{}{
							"hour": integer(), "charge_type": str(), "congestion": str(), "label": str(), "message": str(),
						})),
						"400": errorResponse,
						"404": errorResponse,
					},
				},
			},
			"/api/congestion/chart.png": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Line chart of hourly mean load",
					"parameters": []map[string]interface{}{chargeType},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "PNG image",
							"content": map[string]interface{}{
								"image/png": map[string]interface{}{"schema": map[string]string{"type": "string", "format": "binary"}},
							},
						},
						"404": errorResponse,
					},
				},
			},
			"/api/admin/cache/invalidate": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":    "Drop cached snapshots",
					"parameters": []map[string]interface{}{queryParam("cache", "Invalidate only this cache", str(), false)},
					"responses": map[string]interface{}{
						"200": jsonResponse("Invalidated caches", object(map[string]interface{}{"invalidated": array(str())})),
						"404": errorResponse,
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": jsonResponse("API and database are healthy", object(map[string]interface{}{"status": str(), "database": str()})),
						"503": jsonResponse("Database unreachable", object(map[string]interface{}{"status": str(), "database": str()})),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Prometheus metrics",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{"schema": map[string]string{"type": "string"}},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

const (
	openAPIPath      = "/api/docs/openapi.json"
	swaggerUIVersion = "5.10.0"
)

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="{{.Assets}}/swagger-ui.css">
</head>
<body style="margin:0">
<div id="swagger-ui"></div>
<script src="{{.Assets}}/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: {{.DocURL}}, dom_id: "#swagger-ui", deepLinking: true});
</script>
</body>
</html>`))

// DocsPage renders Swagger UI over the OpenAPI document
func DocsPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	docsPage.Execute(w, map[string]string{
		"Title":  "EV 대시보드 API",
		"Assets": "https://unpkg.com/swagger-ui-dist@" + swaggerUIVersion,
		"DocURL": openAPIPath,
	})
}

// RegisterDocRoutes registers the OpenAPI document and its Swagger UI page
func RegisterDocRoutes(router *mux.Router) {
	router.HandleFunc("/api/docs", DocsPage).Methods("GET")
	router.HandleFunc(openAPIPath, OpenAPISpec).Methods("GET")
}
