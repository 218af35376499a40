package sharepoint

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// OpKind is the batch operation variant tag.
type OpKind int

const (
	OpCreate OpKind = iota
	OpUpdate
	OpDelete
	OpRead
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpRead:
		return "read"
	default:
		return "unknown"
	}
}

// Operation is one logical sub-request in a batch. Construct via the
// CreateOp/UpdateOp/DeleteOp/ReadOp helpers so each variant carries only
// the fields it uses.
type Operation struct {
	Kind      OpKind
	ListTitle string
	ItemID    int
	Fields    map[string]any
}

// CreateOp adds an item to a list.
func CreateOp(listTitle string, fields map[string]any) Operation {
	return Operation{Kind: OpCreate, ListTitle: listTitle, Fields: fields}
}

// UpdateOp merges fields into an existing item.
func UpdateOp(listTitle string, itemID int, fields map[string]any) Operation {
	return Operation{Kind: OpUpdate, ListTitle: listTitle, ItemID: itemID, Fields: fields}
}

// DeleteOp removes an item.
func DeleteOp(listTitle string, itemID int) Operation {
	return Operation{Kind: OpDelete, ListTitle: listTitle, ItemID: itemID}
}

// ReadOp fetches an item. Reads travel outside the changeset per the
// backend's framing rules.
func ReadOp(listTitle string, itemID int) Operation {
	return Operation{Kind: OpRead, ListTitle: listTitle, ItemID: itemID}
}

func (o Operation) mutating() bool {
	return o.Kind != OpRead
}

// Outcome is the per-operation result of a batch, in input order. Partial
// failure is normal: some outcomes succeed while others carry an error.
type Outcome struct {
	Index        int
	Success      bool
	StatusCode   int
	Body         string
	ErrorMessage string
}

// batchBody is an encoded batch request plus the bookkeeping needed to
// correlate the response: order[i] is the input index of the i-th emitted
// sub-request.
type batchBody struct {
	body     []byte
	boundary string
	order    []int
}

// buildBatch encodes the operations into one two-level multipart body.
// Mutating operations share a single changeset nested inside the batch
// boundary; reads sit directly under the batch boundary. Boundary tokens
// are random UUIDs so payload content cannot collide with the framing.
// entityTypes maps list titles to their item entity type, required for
// create/update payloads.
func buildBatch(siteURL string, ops []Operation, entityTypes map[string]string) (*batchBody, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("sharepoint: empty batch")
	}

	batchBoundary := "batch_" + uuid.NewString()
	changesetBoundary := "changeset_" + uuid.NewString()

	var mutating, reads []int

	for i, op := range ops {
		if op.mutating() {
			mutating = append(mutating, i)
		} else {
			reads = append(reads, i)
		}
	}

	var buf bytes.Buffer

	order := make([]int, 0, len(ops))

	// One changeset for every mutating sub-request, preserving their
	// relative input order.
	if len(mutating) > 0 {
		fmt.Fprintf(&buf, "--%s\r\n", batchBoundary)
		fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", changesetBoundary)

		for _, i := range mutating {
			sub, err := encodeSubRequest(siteURL, ops[i], i, entityTypes)
			if err != nil {
				return nil, err
			}

			fmt.Fprintf(&buf, "--%s\r\n", changesetBoundary)
			buf.Write(sub)
			order = append(order, i)
		}

		fmt.Fprintf(&buf, "--%s--\r\n", changesetBoundary)
	}

	for _, i := range reads {
		sub, err := encodeSubRequest(siteURL, ops[i], i, entityTypes)
		if err != nil {
			return nil, err
		}

		fmt.Fprintf(&buf, "--%s\r\n", batchBoundary)
		buf.Write(sub)
		order = append(order, i)
	}

	fmt.Fprintf(&buf, "--%s--\r\n", batchBoundary)

	return &batchBody{body: buf.Bytes(), boundary: batchBoundary, order: order}, nil
}

// encodeSubRequest serializes one operation as an application/http part
// body. The Content-ID is the operation's input position (1-based), but
// position order, not the Content-ID value, is what correlates responses.
func encodeSubRequest(siteURL string, op Operation, index int, entityTypes map[string]string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("Content-Type: application/http\r\n")
	buf.WriteString("Content-Transfer-Encoding: binary\r\n")
	fmt.Fprintf(&buf, "Content-ID: %d\r\n\r\n", index+1)

	switch op.Kind {
	case OpCreate:
		payload, err := buildOpPayload(op, entityTypes)
		if err != nil {
			return nil, err
		}

		fmt.Fprintf(&buf, "POST %s/items HTTP/1.1\r\n", listPath(siteURL, op.ListTitle))
		writeJSONSubHeaders(&buf)
		buf.WriteString("\r\n")
		buf.Write(payload)
		buf.WriteString("\r\n")

	case OpUpdate:
		payload, err := buildOpPayload(op, entityTypes)
		if err != nil {
			return nil, err
		}

		fmt.Fprintf(&buf, "POST %s HTTP/1.1\r\n", itemURL(siteURL, op.ListTitle, op.ItemID))
		buf.WriteString("X-HTTP-Method: MERGE\r\n")
		buf.WriteString("IF-MATCH: *\r\n")
		writeJSONSubHeaders(&buf)
		buf.WriteString("\r\n")
		buf.Write(payload)
		buf.WriteString("\r\n")

	case OpDelete:
		fmt.Fprintf(&buf, "POST %s HTTP/1.1\r\n", itemURL(siteURL, op.ListTitle, op.ItemID))
		buf.WriteString("X-HTTP-Method: DELETE\r\n")
		buf.WriteString("IF-MATCH: *\r\n\r\n")

	case OpRead:
		fmt.Fprintf(&buf, "GET %s HTTP/1.1\r\n", itemURL(siteURL, op.ListTitle, op.ItemID))
		buf.WriteString("Accept: application/json;odata=verbose\r\n\r\n")

	default:
		return nil, fmt.Errorf("sharepoint: unknown batch operation kind %d", op.Kind)
	}

	return buf.Bytes(), nil
}

func buildOpPayload(op Operation, entityTypes map[string]string) ([]byte, error) {
	entity := entityTypes[op.ListTitle]
	if entity == "" {
		return nil, fmt.Errorf("sharepoint: no entity type for list %q", op.ListTitle)
	}

	return itemPayload(entity, op.Fields)
}

func writeJSONSubHeaders(buf *bytes.Buffer) {
	buf.WriteString("Content-Type: application/json;odata=verbose\r\n")
	buf.WriteString("Accept: application/json;odata=verbose\r\n")
}

// subResponse is one decoded sub-response, in response order.
type subResponse struct {
	statusCode int
	body       string
}

// parseBatchResponse decodes the backend's multipart batch response into
// expected sub-responses, in submission order. Changeset responses arrive
// as nested multipart parts and are flattened in place. A response with
// fewer parts than expected is ErrBatchProtocol: the missing operations'
// fates are unknown and must not be guessed.
func parseBatchResponse(contentType string, body []byte, expected int) ([]subResponse, error) {
	subs, err := collectSubResponses(contentType, body)
	if err != nil {
		return nil, err
	}

	if len(subs) < expected {
		return nil, fmt.Errorf("%w: got %d sub-responses, expected %d", ErrBatchProtocol, len(subs), expected)
	}

	return subs[:expected], nil
}

// collectSubResponses walks the (possibly nested) multipart structure and
// flattens application/http parts in document order.
func collectSubResponses(contentType string, body []byte) ([]subResponse, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable content type %q", ErrBatchProtocol, contentType)
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: response content type carries no boundary", ErrBatchProtocol)
	}

	reader := multipart.NewReader(bytes.NewReader(body), boundary)

	var subs []subResponse

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: reading multipart: %v", ErrBatchProtocol, err)
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("%w: reading part: %v", ErrBatchProtocol, err)
		}

		partType := part.Header.Get("Content-Type")
		if strings.HasPrefix(partType, "multipart/mixed") {
			nested, err := collectSubResponses(partType, data)
			if err != nil {
				return nil, err
			}

			subs = append(subs, nested...)

			continue
		}

		sub, err := parseSubResponse(data)
		if err != nil {
			return nil, err
		}

		subs = append(subs, sub)
	}

	return subs, nil
}

// parseSubResponse decodes one embedded HTTP response (status line,
// headers, body).
func parseSubResponse(data []byte) (subResponse, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return subResponse{}, fmt.Errorf("%w: malformed sub-response: %v", ErrBatchProtocol, err)
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return subResponse{}, fmt.Errorf("%w: reading sub-response body: %v", ErrBatchProtocol, err)
	}

	return subResponse{statusCode: resp.StatusCode, body: string(respBody)}, nil
}

// ExecuteBatch runs the operations as a single $batch exchange and
// returns one outcome per operation, in input order. The call itself
// fails only on transport, digest, auth, or protocol errors; individual
// sub-operation failures are reported in their outcome.
func (s *Service) ExecuteBatch(ctx context.Context, siteURL string, ops []Operation) ([]Outcome, error) {
	entityTypes, err := s.batchEntityTypes(ctx, siteURL, ops)
	if err != nil {
		return nil, err
	}

	batch, err := buildBatch(siteURL, ops, entityTypes)
	if err != nil {
		return nil, err
	}

	extra := map[string]string{
		"Content-Type": "multipart/mixed; boundary=" + batch.boundary,
	}

	resp, err := s.mutate(ctx, siteURL, http.MethodPost, siteURL+"/_api/$batch", extra, batch.body)
	if err != nil {
		return nil, err
	}

	subs, err := parseBatchResponse(resp.Header.Get("Content-Type"), resp.Body, len(ops))
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(ops))

	for pos, sub := range subs {
		idx := batch.order[pos]
		outcome := Outcome{
			Index:      idx,
			StatusCode: sub.statusCode,
			Success:    sub.statusCode >= http.StatusOK && sub.statusCode < http.StatusMultipleChoices,
		}

		if outcome.Success {
			outcome.Body = sub.body
		} else {
			outcome.ErrorMessage = sub.body
			if outcome.ErrorMessage == "" {
				outcome.ErrorMessage = "HTTP " + strconv.Itoa(sub.statusCode)
			}
		}

		outcomes[idx] = outcome
	}

	return outcomes, nil
}

// batchEntityTypes resolves the item entity type for every list the batch
// writes payloads to.
func (s *Service) batchEntityTypes(ctx context.Context, siteURL string, ops []Operation) (map[string]string, error) {
	types := make(map[string]string)

	for _, op := range ops {
		if op.Kind != OpCreate && op.Kind != OpUpdate {
			continue
		}

		if _, ok := types[op.ListTitle]; ok {
			continue
		}

		entity, err := s.entityType(ctx, siteURL, op.ListTitle)
		if err != nil {
			return nil, err
		}

		types[op.ListTitle] = entity
	}

	return types, nil
}
