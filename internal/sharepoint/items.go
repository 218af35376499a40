package sharepoint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// defaultItemPageSize caps unpaged item reads. Large list reads have been
// observed to hang; the per-call timeout plus a bounded page keeps reads
// predictable.
const defaultItemPageSize = 100

// Items returns up to top items from a list. top <= 0 uses the default
// page size.
func (s *Service) Items(ctx context.Context, siteURL, listTitle string, top int) ([]Item, error) {
	if top <= 0 {
		top = defaultItemPageSize
	}

	callURL := listPath(siteURL, listTitle) + "/items?$top=" + strconv.Itoa(top)

	resp, err := s.get(ctx, siteURL, callURL)
	if err != nil {
		return nil, err
	}

	var body collection[Item]
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding items of %q: %w", listTitle, err)
	}

	return body.D.Results, nil
}

// ItemsByListID returns up to top items from a list addressed by its
// GUID. Lookup fields reference their target list by GUID, so this is
// the read used to resolve lookup targets.
func (s *Service) ItemsByListID(ctx context.Context, siteURL, listID string, top int) ([]Item, error) {
	if top <= 0 {
		top = defaultItemPageSize
	}

	guid := strings.Trim(listID, "{}")
	callURL := siteURL + "/_api/web/lists(guid'" + guid + "')/items?$top=" + strconv.Itoa(top)

	resp, err := s.get(ctx, siteURL, callURL)
	if err != nil {
		return nil, err
	}

	var body collection[Item]
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding items of list %s: %w", guid, err)
	}

	return body.D.Results, nil
}

// GetItem returns one item by id.
func (s *Service) GetItem(ctx context.Context, siteURL, listTitle string, itemID int) (Item, error) {
	resp, err := s.get(ctx, siteURL, itemURL(siteURL, listTitle, itemID))
	if err != nil {
		return nil, err
	}

	var body envelope[Item]
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding item %d of %q: %w", itemID, listTitle, err)
	}

	return body.D, nil
}

// CreateItem adds an item and returns the created row.
func (s *Service) CreateItem(ctx context.Context, siteURL, listTitle string, fields map[string]any) (Item, error) {
	entity, err := s.entityType(ctx, siteURL, listTitle)
	if err != nil {
		return nil, err
	}

	payload, err := itemPayload(entity, fields)
	if err != nil {
		return nil, err
	}

	resp, err := s.mutate(ctx, siteURL, http.MethodPost, listPath(siteURL, listTitle)+"/items", nil, payload)
	if err != nil {
		return nil, err
	}

	var body envelope[Item]
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("sharepoint: decoding created item: %w", err)
	}

	return body.D, nil
}

// UpdateItem merges fields into an existing item.
func (s *Service) UpdateItem(ctx context.Context, siteURL, listTitle string, itemID int, fields map[string]any) error {
	entity, err := s.entityType(ctx, siteURL, listTitle)
	if err != nil {
		return err
	}

	payload, err := itemPayload(entity, fields)
	if err != nil {
		return err
	}

	extra := map[string]string{
		"X-HTTP-Method": "MERGE",
		"IF-MATCH":      "*",
	}

	_, err = s.mutate(ctx, siteURL, http.MethodPost, itemURL(siteURL, listTitle, itemID), extra, payload)

	return err
}

// DeleteItem removes an item by id.
func (s *Service) DeleteItem(ctx context.Context, siteURL, listTitle string, itemID int) error {
	extra := map[string]string{
		"X-HTTP-Method": "DELETE",
		"IF-MATCH":      "*",
	}

	_, err := s.mutate(ctx, siteURL, http.MethodPost, itemURL(siteURL, listTitle, itemID), extra, nil)

	return err
}

func itemURL(siteURL, listTitle string, itemID int) string {
	return listPath(siteURL, listTitle) + "/items(" + strconv.Itoa(itemID) + ")"
}
