package sharepoint

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEntityTypes = map[string]string{
	"Tasks":    "SP.Data.TasksListItem",
	"Projects": "SP.Data.ProjectsListItem",
}

// buildBatchResponse synthesizes a backend batch response: one nested
// changeset carrying every sub-response, mirroring an all-mutating batch.
func buildBatchResponse(t *testing.T, statuses []int, bodies []string) (string, []byte) {
	t.Helper()
	require.Equal(t, len(statuses), len(bodies))

	var changeset bytes.Buffer

	inner := multipart.NewWriter(&changeset)

	for i, status := range statuses {
		part, err := inner.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/http"},
			"Content-Transfer-Encoding": {"binary"},
		})
		require.NoError(t, err)

		fmt.Fprintf(part, "HTTP/1.1 %d %s\r\n", status, statusText(status))
		fmt.Fprintf(part, "Content-Type: application/json;odata=verbose\r\n\r\n")
		fmt.Fprint(part, bodies[i])
	}

	require.NoError(t, inner.Close())

	var outer bytes.Buffer

	w := multipart.NewWriter(&outer)

	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"multipart/mixed; boundary=" + inner.Boundary()},
	})
	require.NoError(t, err)

	_, err = part.Write(changeset.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return "multipart/mixed; boundary=" + w.Boundary(), outer.Bytes()
}

func statusText(status int) string {
	switch status {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	default:
		return "Status"
	}
}

func TestBuildBatch_Framing(t *testing.T) {
	ops := []Operation{
		CreateOp("Tasks", map[string]any{"Title": "one"}),
		UpdateOp("Tasks", 7, map[string]any{"Title": "two"}),
		DeleteOp("Tasks", 9),
	}

	batch, err := buildBatch("https://site", ops, testEntityTypes)
	require.NoError(t, err)

	body := string(batch.body)

	assert.True(t, strings.HasPrefix(batch.boundary, "batch_"))
	assert.Equal(t, []int{0, 1, 2}, batch.order)

	// All three mutations share exactly one changeset.
	assert.Equal(t, 1, strings.Count(body, "Content-Type: multipart/mixed; boundary=changeset_"))

	// Sub-requests appear in input order with positional Content-IDs.
	id1 := strings.Index(body, "Content-ID: 1")
	id2 := strings.Index(body, "Content-ID: 2")
	id3 := strings.Index(body, "Content-ID: 3")
	require.True(t, id1 >= 0 && id2 >= 0 && id3 >= 0)
	assert.True(t, id1 < id2 && id2 < id3)

	assert.Contains(t, body, "POST https://site/_api/web/lists/getbytitle('Tasks')/items HTTP/1.1")
	assert.Contains(t, body, "X-HTTP-Method: MERGE")
	assert.Contains(t, body, "X-HTTP-Method: DELETE")
	assert.Contains(t, body, "SP.Data.TasksListItem")
	assert.True(t, strings.HasSuffix(body, "--"+batch.boundary+"--\r\n"))
}

func TestBuildBatch_ReadsOutsideChangeset(t *testing.T) {
	ops := []Operation{
		CreateOp("Tasks", map[string]any{"Title": "one"}),
		ReadOp("Tasks", 4),
	}

	batch, err := buildBatch("https://site", ops, testEntityTypes)
	require.NoError(t, err)

	body := string(batch.body)

	changesetClose := strings.Index(body, "--\r\n--"+batch.boundary)
	readPos := strings.Index(body, "GET https://site")
	require.True(t, changesetClose >= 0 && readPos >= 0)
	assert.Greater(t, readPos, changesetClose, "read sub-request sits outside the changeset")
	assert.Equal(t, []int{0, 1}, batch.order)
}

func TestBuildBatch_BoundariesAreUnique(t *testing.T) {
	ops := []Operation{DeleteOp("Tasks", 1)}

	first, err := buildBatch("https://site", ops, testEntityTypes)
	require.NoError(t, err)

	second, err := buildBatch("https://site", ops, testEntityTypes)
	require.NoError(t, err)

	assert.NotEqual(t, first.boundary, second.boundary)
}

func TestBuildBatch_Empty(t *testing.T) {
	_, err := buildBatch("https://site", nil, testEntityTypes)
	require.Error(t, err)
}

func TestBuildBatch_MissingEntityType(t *testing.T) {
	_, err := buildBatch("https://site", []Operation{
		CreateOp("Unknown", map[string]any{"Title": "x"}),
	}, testEntityTypes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entity type")
}

func TestParseBatchResponse_RoundTripOrder(t *testing.T) {
	for _, n := range []int{1, 2, 5, 17, 100} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			ops := make([]Operation, n)
			statuses := make([]int, n)
			bodies := make([]string, n)

			for i := 0; i < n; i++ {
				ops[i] = CreateOp("Tasks", map[string]any{"Title": fmt.Sprintf("item %d", i)})
				statuses[i] = 201
				bodies[i] = fmt.Sprintf(`{"d":{"Id":%d}}`, i+1)
			}

			batch, err := buildBatch("https://site", ops, testEntityTypes)
			require.NoError(t, err)
			require.Len(t, batch.order, n)

			contentType, respBody := buildBatchResponse(t, statuses, bodies)

			subs, err := parseBatchResponse(contentType, respBody, n)
			require.NoError(t, err)
			require.Len(t, subs, n)

			for i, sub := range subs {
				assert.Equal(t, 201, sub.statusCode)
				assert.Equal(t, bodies[i], sub.body, "sub-response %d correlates by position", i)
			}
		})
	}
}

func TestParseBatchResponse_MixedStatuses(t *testing.T) {
	contentType, body := buildBatchResponse(t,
		[]int{201, 400, 201},
		[]string{`{"d":{"Id":1}}`, `{"error":{"message":"invalid"}}`, `{"d":{"Id":2}}`},
	)

	subs, err := parseBatchResponse(contentType, body, 3)
	require.NoError(t, err)
	assert.Equal(t, 201, subs[0].statusCode)
	assert.Equal(t, 400, subs[1].statusCode)
	assert.Equal(t, 201, subs[2].statusCode)
	assert.Contains(t, subs[1].body, "invalid")
}

func TestParseBatchResponse_ShortResponse(t *testing.T) {
	contentType, body := buildBatchResponse(t, []int{201}, []string{`{"d":{"Id":1}}`})

	subs, err := parseBatchResponse(contentType, body, 3)
	require.ErrorIs(t, err, ErrBatchProtocol)
	assert.Nil(t, subs, "no partial outcome list on a truncated response")
}

func TestParseBatchResponse_NoBoundary(t *testing.T) {
	_, err := parseBatchResponse("application/json", []byte("{}"), 1)
	require.ErrorIs(t, err, ErrBatchProtocol)
}

func TestParseBatchResponse_Garbage(t *testing.T) {
	_, err := parseBatchResponse("multipart/mixed; boundary=xyz", []byte("not multipart at all"), 1)
	require.ErrorIs(t, err, ErrBatchProtocol)
}
