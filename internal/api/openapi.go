package api

import (
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/config"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/openapi"
)

// BuildSpec assembles the OpenAPI document for the API module. Paths are
// relative to the configured base path, which is published as the server URL.
func BuildSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(schemas())
	spec.Components.AddResponses(responses())

	addDocumentPaths(spec)
	addCollectionPaths(spec)
	addRecordPaths(spec)
	addSessionPaths(spec)

	return spec
}

func addDocumentPaths(spec *openapi.Spec) {
	spec.Paths["/documents"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List documents",
			Tags:    []string{"documents"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Match against filename and author", false),
				openapi.QueryParam("status", "string", "Filter by processing status", false),
				openapi.QueryParam("content_type", "string", "Filter by content type", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("A page of documents", "DocumentPage"),
			},
		},
		Post: &openapi.Operation{
			Summary:     "Upload a document",
			Description: "Multipart upload with a `file` part and optional `source_isbn` and `source_author` fields.",
			Tags:        []string{"documents"},
			Responses: map[int]*openapi.Response{
				201: openapi.ResponseJSON("The stored document", "Document"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/documents/search"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Search documents",
			Tags:        []string{"documents"},
			RequestBody: openapi.RequestBodyJSON("DocumentSearch", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("A page of documents", "DocumentPage"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/documents/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Find a document",
			Tags:       []string{"documents"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Document ID")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("The document", "Document"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
		Delete: &openapi.Operation{
			Summary:     "Delete a document",
			Description: "Removes the metadata row and the stored blob.",
			Tags:        []string{"documents"},
			Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Document ID")},
			Responses: map[int]*openapi.Response{
				204: {Description: "Deleted"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
}

func addCollectionPaths(spec *openapi.Spec) {
	spec.Paths["/collections"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List collections",
			Tags:    []string{"collections"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Match against collection path", false),
				openapi.QueryParam("game_type", "string", "Filter by game type segment", false),
				openapi.QueryParam("edition", "string", "Filter by edition segment", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("A page of collections", "CollectionPage"),
			},
		},
	}

	spec.Paths["/collections/search"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Search collections",
			Tags:        []string{"collections"},
			RequestBody: openapi.RequestBodyJSON("CollectionSearch", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("A page of collections", "CollectionPage"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}

	spec.Paths["/collections/{path}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Find a collection",
			Tags:       []string{"collections"},
			Parameters: []*openapi.Parameter{collectionPathParam()},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("The collection", "Collection"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/collections/{path}/search"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:     "Semantic search within a collection",
			Description: "Embeds the query text and returns the most similar stored sections.",
			Tags:        []string{"collections"},
			Parameters: []*openapi.Parameter{
				collectionPathParam(),
				openapi.QueryParam("q", "string", "Query text", true),
				openapi.QueryParam("category", "string", "Restrict hits to one section category", false),
				openapi.QueryParam("limit", "integer", "Maximum hits to return", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Ranked section hits", "HitList"),
				400: openapi.ResponseRef("BadRequest"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
}

func addRecordPaths(spec *openapi.Spec) {
	spec.Paths["/records"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List extraction records",
			Tags:    []string{"records"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("collection_path", "string", "Filter by partial collection path", false),
				openapi.QueryParam("game_type", "string", "Filter by game type", false),
				openapi.QueryParam("semantic_state", "string", "Filter by semantic mirror state", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("A page of records", "RecordPage"),
			},
		},
	}

	spec.Paths["/records/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Find a record with its sections",
			Tags:       []string{"records"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Record ID")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("The record detail", "RecordDetail"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/records/search"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Semantic search",
			Tags:        []string{"records"},
			RequestBody: openapi.RequestBodyJSON("SemanticQuery", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Ranked section hits", "HitList"),
				400: openapi.ResponseRef("BadRequest"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/records/repair"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Repair the semantic mirror",
			Description: "Re-mirrors records whose sections never reached the semantic store.",
			Tags:        []string{"records"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("What the pass touched", "RepairReport"),
			},
		},
	}
}

func addSessionPaths(spec *openapi.Spec) {
	spec.Paths["/sessions"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List sessions",
			Tags:    []string{"sessions"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("All tracked sessions, newest first", "SessionList"),
			},
		},
		Post: &openapi.Operation{
			Summary:     "Start a classification session",
			Description: "Begins the classify phase and returns immediately; poll the session for progress.",
			Tags:        []string{"sessions"},
			RequestBody: openapi.RequestBodyJSON("StartSession", true),
			Responses: map[int]*openapi.Response{
				202: openapi.ResponseJSON("The accepted session", "Session"),
				400: openapi.ResponseRef("BadRequest"),
				429: openapi.ResponseRef("TooManySessions"),
			},
		},
	}

	spec.Paths["/sessions/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Find a session",
			Tags:       []string{"sessions"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Session ID")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("The session", "Session"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
		Delete: &openapi.Operation{
			Summary:     "Cancel a session",
			Description: "Stops any running phase and removes the session from tracking.",
			Tags:        []string{"sessions"},
			Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Session ID")},
			Responses: map[int]*openapi.Response{
				204: {Description: "Cancelled"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/sessions/{id}/extract"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Extract and commit a classified session",
			Description: "Runs categorization and the dual-store commit, then returns the commit result.",
			Tags:        []string{"sessions"},
			Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Session ID")},
			RequestBody: openapi.RequestBodyJSON("ExtractOverrides", false),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("The commit result", "CommitResult"),
				404: openapi.ResponseRef("NotFound"),
				409: openapi.ResponseRef("NotClassified"),
			},
		},
	}

	spec.Paths["/sessions/{id}/usage"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Session provider usage",
			Tags:       []string{"sessions"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Session ID")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Token and cost totals by scope", "Usage"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
}

func collectionPathParam() *openapi.Parameter {
	return &openapi.Parameter{
		Name:        "path",
		In:          "path",
		Required:    true,
		Description: "Dotted collection path",
		Schema: &openapi.Schema{
			Type:    "string",
			Example: "source_material.dnd.1st_edition.monster_manual.monster_manual",
		},
	}
}

func pageOf(itemSchema string) *openapi.Schema {
	return &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":        {Type: "array", Items: openapi.SchemaRef(itemSchema)},
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
		},
	}
}

func schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Document": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":            {Type: "string", Format: "uuid"},
				"filename":      {Type: "string"},
				"content_type":  {Type: "string"},
				"size_bytes":    {Type: "integer"},
				"page_count":    {Type: "integer"},
				"source_isbn":   {Type: "string"},
				"source_author": {Type: "string"},
				"storage_key":   {Type: "string"},
				"status":        {Type: "string", Enum: []any{"uploaded", "classified", "extracted", "failed"}},
				"uploaded_at":   {Type: "string", Format: "date-time"},
				"updated_at":    {Type: "string", Format: "date-time"},
			},
		},
		"DocumentPage": pageOf("Document"),
		"DocumentSearch": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"page":          {Type: "integer"},
				"page_size":     {Type: "integer"},
				"search":        {Type: "string"},
				"status":        {Type: "string"},
				"filename":      {Type: "string"},
				"content_type":  {Type: "string"},
				"source_isbn":   {Type: "string"},
				"source_author": {Type: "string"},
			},
		},
		"Collection": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"path":              {Type: "string"},
				"content_type":      {Type: "string"},
				"game_type":         {Type: "string"},
				"edition":           {Type: "string"},
				"book_type":         {Type: "string"},
				"name":              {Type: "string"},
				"records":           {Type: "integer"},
				"sections":          {Type: "integer"},
				"last_extracted_at": {Type: "string", Format: "date-time"},
			},
		},
		"CollectionPage": pageOf("Collection"),
		"CollectionSearch": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"page":         {Type: "integer"},
				"page_size":    {Type: "integer"},
				"search":       {Type: "string"},
				"content_type": {Type: "string"},
				"game_type":    {Type: "string"},
				"edition":      {Type: "string"},
				"book_type":    {Type: "string"},
			},
		},
		"Record": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":             {Type: "string", Format: "uuid"},
				"document_id":    {Type: "string", Format: "uuid"},
				"session_id":     {Type: "string", Format: "uuid"},
				"path":           {Type: "string"},
				"collection":     {Type: "object"},
				"content_hash":   {Type: "string"},
				"source":         {Type: "object"},
				"confidence":     {Type: "number"},
				"provider":       {Type: "string"},
				"model":          {Type: "string"},
				"degraded":       {Type: "boolean"},
				"section_count":  {Type: "integer"},
				"semantic_state": {Type: "string", Enum: []any{"pending", "committed"}},
				"extracted_at":   {Type: "string", Format: "date-time"},
				"updated_at":     {Type: "string", Format: "date-time"},
			},
		},
		"RecordPage": pageOf("Record"),
		"RecordDetail": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"record":   openapi.SchemaRef("Record"),
				"sections": {Type: "array", Items: openapi.SchemaRef("Section")},
			},
		},
		"Section": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"position":   {Type: "integer"},
				"page":       {Type: "integer"},
				"title":      {Type: "string"},
				"text":       {Type: "string"},
				"category":   {Type: "string"},
				"confidence": {Type: "number"},
				"is_table":   {Type: "boolean"},
			},
		},
		"SemanticQuery": {
			Type:     "object",
			Required: []string{"collection_path", "query"},
			Properties: map[string]*openapi.Schema{
				"collection_path": {Type: "string"},
				"query":           {Type: "string"},
				"limit":           {Type: "integer", Default: 10},
				"category":        {Type: "string"},
			},
		},
		"Hit": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":              {Type: "string"},
				"record_id":       {Type: "string", Format: "uuid"},
				"collection_path": {Type: "string"},
				"page":            {Type: "integer"},
				"category":        {Type: "string"},
				"content":         {Type: "string"},
				"similarity":      {Type: "number"},
			},
		},
		"HitList": {Type: "array", Items: openapi.SchemaRef("Hit")},
		"RepairReport": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"scanned":  {Type: "integer"},
				"repaired": {Type: "integer"},
				"failed":   {Type: "integer"},
			},
		},
		"StartSession": {
			Type:     "object",
			Required: []string{"document_id"},
			Properties: map[string]*openapi.Schema{
				"document_id":  {Type: "string", Format: "uuid"},
				"content_type": {Type: "string", Enum: []any{"source_material", "novel"}},
				"provider":     {Type: "string", Enum: []any{"anthropic", "openai", "openrouter"}},
			},
		},
		"Session": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":             {Type: "string", Format: "uuid"},
				"document_id":    {Type: "string", Format: "uuid"},
				"content_type":   {Type: "string"},
				"provider":       {Type: "string"},
				"status":         {Type: "string", Enum: []any{"classifying", "classified", "extracting", "committed", "partially_committed", "failed"}},
				"progress":       {Type: "object"},
				"filename":       {Type: "string"},
				"page_count":     {Type: "integer"},
				"classification": {Type: "object"},
				"collection":     {Type: "string"},
				"result":         openapi.SchemaRef("CommitResult"),
				"error":          {Type: "string"},
				"started_at":     {Type: "string", Format: "date-time"},
				"updated_at":     {Type: "string", Format: "date-time"},
			},
		},
		"SessionList": {Type: "array", Items: openapi.SchemaRef("Session")},
		"ExtractOverrides": {
			Type:        "object",
			Description: "Metadata corrections applied before the commit. Empty fields keep detected values.",
			Properties: map[string]*openapi.Schema{
				"game_type":  {Type: "string"},
				"edition":    {Type: "string"},
				"book_type":  {Type: "string"},
				"collection": {Type: "string"},
				"title":      {Type: "string"},
				"author":     {Type: "string"},
				"isbn":       {Type: "string"},
			},
		},
		"CommitResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"record": openapi.SchemaRef("Record"),
				"state":  {Type: "string", Enum: []any{"committed", "partial"}},
			},
		},
		"Usage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"session_id": {Type: "string", Format: "uuid"},
				"status":     {Type: "string"},
				"summary":    {Type: "object"},
			},
		},
	}
}

func responses() map[string]*openapi.Response {
	return map[string]*openapi.Response{
		"TooManySessions": {
			Description: "The session limit is reached; retry after a session finishes or is cancelled",
			Content: map[string]*openapi.MediaType{
				"application/json": {
					Schema: &openapi.Schema{
						Type: "object",
						Properties: map[string]*openapi.Schema{
							"error": {Type: "string"},
						},
					},
				},
			},
		},
		"NotClassified": {
			Description: "The session has no parked classification to extract",
			Content: map[string]*openapi.MediaType{
				"application/json": {
					Schema: &openapi.Schema{
						Type: "object",
						Properties: map[string]*openapi.Schema{
							"error": {Type: "string"},
						},
					},
				},
			},
		},
	}
}
