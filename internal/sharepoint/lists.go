package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetWeb returns the site's metadata.
func (s *Service) GetWeb(ctx context.Context, siteURL string) (*Web, error) {
	resp, err := s.get(ctx, siteURL, siteURL+"/_api/web")
	if err != nil {
		return nil, err
	}

	var body envelope[Web]
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding web: %w", err)
	}

	return &body.D, nil
}

// Lists returns the site's non-hidden lists.
func (s *Service) Lists(ctx context.Context, siteURL string) ([]List, error) {
	resp, err := s.get(ctx, siteURL, siteURL+"/_api/web/lists?$filter=Hidden eq false")
	if err != nil {
		return nil, err
	}

	var body collection[List]
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding lists: %w", err)
	}

	return body.D.Results, nil
}

// GetList returns one list by title.
func (s *Service) GetList(ctx context.Context, siteURL, listTitle string) (*List, error) {
	resp, err := s.get(ctx, siteURL, listPath(siteURL, listTitle))
	if err != nil {
		return nil, err
	}

	var body envelope[List]
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding list %q: %w", listTitle, err)
	}

	return &body.D, nil
}

// genericListTemplate is the base template id for a custom list.
const genericListTemplate = 100

// CreateList creates a custom list. template 0 means a generic list.
func (s *Service) CreateList(ctx context.Context, siteURL, title, description string, template int) (*List, error) {
	if template == 0 {
		template = genericListTemplate
	}

	payload, err := json.Marshal(map[string]any{
		"__metadata":   map[string]string{"type": "SP.List"},
		"Title":        title,
		"Description":  description,
		"BaseTemplate": template,
	})
	if err != nil {
		return nil, fmt.Errorf("sharepoint: encoding list payload: %w", err)
	}

	resp, err := s.mutate(ctx, siteURL, http.MethodPost, siteURL+"/_api/web/lists", nil, payload)
	if err != nil {
		return nil, err
	}

	var body envelope[List]
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding created list: %w", err)
	}

	return &body.D, nil
}

// DeleteList removes a list by title.
func (s *Service) DeleteList(ctx context.Context, siteURL, listTitle string) error {
	extra := map[string]string{
		"X-HTTP-Method": "DELETE",
		"IF-MATCH":      "*",
	}

	_, err := s.mutate(ctx, siteURL, http.MethodPost, listPath(siteURL, listTitle), extra, nil)

	return err
}

// ListFields returns the list's fields, including hidden and read-only
// ones; callers filter for their purpose.
func (s *Service) ListFields(ctx context.Context, siteURL, listTitle string) ([]Field, error) {
	resp, err := s.get(ctx, siteURL, listPath(siteURL, listTitle)+"/fields")
	if err != nil {
		return nil, err
	}

	var body collection[Field]
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding fields of %q: %w", listTitle, err)
	}

	return body.D.Results, nil
}
