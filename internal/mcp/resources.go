package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/wevote/wevoteserver/internal/apidocs"
)

const (
	docsIndexURI       = uriScheme + "docs"
	docsEndpointPrefix = uriScheme + "docs/"
)

func (s *Server) registerResources() {
	// wevote://docs lists every documented /apis/v1 endpoint.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			docsIndexURI,
			"API Documentation Index",
			mcplib.WithResourceDescription("Every public /apis/v1 endpoint with its method and introduction"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleDocsIndex,
	)

	// wevote://docs/{name} is the full documentation of one endpoint.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			docsEndpointPrefix+"{name}",
			"API Endpoint Documentation",
			mcplib.WithTemplateDescription("Parameters, status codes and an example response for one endpoint"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleDocsEndpoint,
	)
}

func (s *Server) handleDocsIndex(context.Context, mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	type entry struct {
		Name         string `json:"api_name"`
		Method       string `json:"method"`
		URLRoot      string `json:"url_root"`
		Introduction string `json:"api_introduction"`
	}
	all := apidocs.All()
	entries := make([]entry, 0, len(all))
	for _, ep := range all {
		entries = append(entries, entry{Name: ep.Name, Method: ep.Method, URLRoot: ep.URLRoot, Introduction: ep.Introduction})
	}
	return jsonResource(docsIndexURI, entries)
}

// parseDocsURI extracts the endpoint name from wevote://docs/{name}.
func parseDocsURI(uri string) (string, error) {
	name, ok := strings.CutPrefix(uri, docsEndpointPrefix)
	if !ok {
		return "", fmt.Errorf("mcp: invalid docs URI: %s", uri)
	}
	name = strings.TrimSuffix(name, "/")
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("mcp: invalid docs URI: %s", uri)
	}
	return name, nil
}

func (s *Server) handleDocsEndpoint(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	name, err := parseDocsURI(uri)
	if err != nil {
		return nil, err
	}
	ep, ok := apidocs.Get(name)
	if !ok {
		return nil, fmt.Errorf("mcp: no documentation for %q", name)
	}
	return jsonResource(uri, ep)
}

func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal %s: %w", uri, err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
