// Package seeding populates lists with synthetic items. Seeding runs in
// two phases: items are first created with lookup fields omitted, then
// lookup targets are resolved against the live foreign lists and patched
// in. The second pass exists because a valid lookup value references a
// real row id that is unknowable without a separate query.
package seeding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Zerg00s/sharepoint-mcp-go/internal/mockgen"
	"github.com/Zerg00s/sharepoint-mcp-go/internal/sharepoint"
)

// Backend is the slice of the SharePoint service the seeder needs.
type Backend interface {
	ListFields(ctx context.Context, siteURL, listTitle string) ([]sharepoint.Field, error)
	ItemsByListID(ctx context.Context, siteURL, listID string, top int) ([]sharepoint.Item, error)
	ExecuteBatch(ctx context.Context, siteURL string, ops []sharepoint.Operation) ([]sharepoint.Outcome, error)
}

// Seeder generates and writes mock items.
type Seeder struct {
	backend Backend
	logger  *slog.Logger
}

// NewSeeder creates a seeder over the given backend.
func NewSeeder(backend Backend, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Seeder{backend: backend, logger: logger}
}

// Report summarizes one seeding run.
type Report struct {
	Requested      int                  `json:"requested"`
	Created        int                  `json:"created"`
	Failed         int                  `json:"failed"`
	LookupsPatched int                  `json:"lookupsPatched"`
	LookupsSkipped int                  `json:"lookupsSkipped"`
	Outcomes       []sharepoint.Outcome `json:"outcomes"`
}

// pendingLookup records a placeholder awaiting phase two for one item.
type pendingLookup struct {
	itemIndex   int
	placeholder *mockgen.LookupPlaceholder
	lookupList  string
}

// Seed creates count synthetic items in the list. Phase one creates the
// items through a single batch with lookup fields omitted; phase two
// resolves a target id for each lookup placeholder and patches the
// created items through a second batch. Per-item failures are reported
// in the outcomes, not raised.
func (s *Seeder) Seed(ctx context.Context, siteURL, listTitle string, count int) (*Report, error) {
	if count <= 0 {
		return nil, fmt.Errorf("seeding: item count must be positive, got %d", count)
	}

	fields, err := s.backend.ListFields(ctx, siteURL, listTitle)
	if err != nil {
		return nil, err
	}

	writable := writableFields(fields)
	if len(writable) == 0 {
		return nil, fmt.Errorf("seeding: list %q has no writable fields", listTitle)
	}

	ops := make([]sharepoint.Operation, 0, count)

	var pending []pendingLookup

	for i := 0; i < count; i++ {
		payload := make(map[string]any)

		for _, field := range writable {
			value := mockgen.Generate(descriptorFor(field), i)
			if value == nil {
				continue
			}

			if placeholder, ok := value.(*mockgen.LookupPlaceholder); ok {
				pending = append(pending, pendingLookup{
					itemIndex:   i,
					placeholder: placeholder,
					lookupList:  field.LookupList,
				})

				continue
			}

			payload[field.InternalName] = wireValue(value)
		}

		ops = append(ops, sharepoint.CreateOp(listTitle, payload))
	}

	outcomes, err := s.backend.ExecuteBatch(ctx, siteURL, ops)
	if err != nil {
		return nil, err
	}

	report := &Report{Requested: count, Outcomes: outcomes}

	createdIDs := make(map[int]int)

	for _, outcome := range outcomes {
		if !outcome.Success {
			report.Failed++
			continue
		}

		report.Created++

		if id, ok := createdItemID(outcome.Body); ok {
			createdIDs[outcome.Index] = id
		}
	}

	if err := s.patchLookups(ctx, siteURL, listTitle, pending, createdIDs, report); err != nil {
		return nil, err
	}

	return report, nil
}

// patchLookups runs phase two: resolve each placeholder against its
// foreign list and MERGE the reference into the created item.
func (s *Seeder) patchLookups(ctx context.Context, siteURL, listTitle string, pending []pendingLookup, createdIDs map[int]int, report *Report) error {
	if len(pending) == 0 {
		return nil
	}

	// Foreign list rows are fetched once per target list.
	targets := make(map[string][]sharepoint.Item)

	patches := make(map[int]map[string]any)

	for _, p := range pending {
		itemID, ok := createdIDs[p.itemIndex]
		if !ok {
			report.LookupsSkipped++
			continue
		}

		if p.lookupList == "" {
			s.logger.Warn("lookup field has no target list",
				slog.String("field", p.placeholder.FieldName),
			)

			report.LookupsSkipped++

			continue
		}

		rows, ok := targets[p.lookupList]
		if !ok {
			var err error

			rows, err = s.backend.ItemsByListID(ctx, siteURL, p.lookupList, 0)
			if err != nil {
				return fmt.Errorf("seeding: resolving lookup targets: %w", err)
			}

			targets[p.lookupList] = rows
		}

		if len(rows) == 0 {
			s.logger.Warn("lookup target list is empty, leaving field unset",
				slog.String("field", p.placeholder.FieldName),
			)

			report.LookupsSkipped++

			continue
		}

		targetID := rows[p.itemIndex%len(rows)].ID()

		fields := patches[itemID]
		if fields == nil {
			fields = make(map[string]any)
			patches[itemID] = fields
		}

		key := p.placeholder.FieldName + "Id"
		if p.placeholder.AllowsMultiple {
			fields[key] = map[string]any{"results": []int{targetID}}
		} else {
			fields[key] = targetID
		}
	}

	if len(patches) == 0 {
		return nil
	}

	// Stable submission order keeps seeding runs reproducible.
	itemIDs := make([]int, 0, len(patches))
	for itemID := range patches {
		itemIDs = append(itemIDs, itemID)
	}

	sort.Ints(itemIDs)

	ops := make([]sharepoint.Operation, 0, len(patches))
	for _, itemID := range itemIDs {
		ops = append(ops, sharepoint.UpdateOp(listTitle, itemID, patches[itemID]))
	}

	outcomes, err := s.backend.ExecuteBatch(ctx, siteURL, ops)
	if err != nil {
		return fmt.Errorf("seeding: patching lookups: %w", err)
	}

	for _, outcome := range outcomes {
		if outcome.Success {
			report.LookupsPatched++
		} else {
			report.LookupsSkipped++
		}
	}

	return nil
}

// seedFieldDenylist holds writable-looking fields that must not be
// populated with synthetic values.
var seedFieldDenylist = map[string]bool{
	"ContentType":   true,
	"Attachments":   true,
	"ContentTypeId": true,
}

// writableFields filters to the fields a seeded payload may set.
func writableFields(fields []sharepoint.Field) []sharepoint.Field {
	var out []sharepoint.Field

	for _, f := range fields {
		if f.Hidden || f.ReadOnlyField || seedFieldDenylist[f.InternalName] {
			continue
		}

		if strings.HasPrefix(f.InternalName, "_") {
			continue
		}

		out = append(out, f)
	}

	return out
}

// descriptorFor adapts a list field to the generator's input. Multi-value
// lookups surface as type Lookup with AllowMultipleValues set, so the
// type name is rewritten to the multi variant the generator dispatches on.
func descriptorFor(f sharepoint.Field) mockgen.FieldDescriptor {
	typeName := f.TypeAsString
	if f.AllowMultipleValues {
		switch strings.ToLower(typeName) {
		case "lookup":
			typeName = "LookupMulti"
		case "user":
			typeName = "UserMulti"
		}
	}

	return mockgen.FieldDescriptor{
		InternalName: f.InternalName,
		DisplayTitle: f.Title,
		TypeName:     typeName,
		Choices:      f.ChoiceValues(),
	}
}

// wireValue converts a generated value to the wire shape the backend
// expects. Multi-choice values need the verbose results wrapper.
func wireValue(value any) any {
	if values, ok := value.([]string); ok {
		return map[string]any{"results": values}
	}

	return value
}

// createdItemID extracts the new item's id from a successful create
// outcome body.
func createdItemID(body string) (int, bool) {
	var parsed struct {
		D struct {
			ID float64 `json:"Id"`
		} `json:"d"`
	}

	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return 0, false
	}

	if parsed.D.ID == 0 {
		return 0, false
	}

	return int(parsed.D.ID), true
}
