package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/astarworks/flextable/pkg/types"
	"github.com/astarworks/flextable/pkg/validate"
)

// SchemaStore owns the Table and PropertyDefinition lifecycle.
type SchemaStore struct {
	backend types.Backend
	log     zerolog.Logger
}

// NewSchemaStore creates a schema store over the given backend.
func NewSchemaStore(backend types.Backend, log zerolog.Logger) *SchemaStore {
	return &SchemaStore{backend: backend, log: log}
}

// newUUID generates a UUID v7 string.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// TablePatch is a partial update of a table's display metadata. Nil fields
// are left unchanged. Properties and their order are never touched here;
// they change only through the property operations.
type TablePatch struct {
	Name        *string
	Description *string
}

// PropertyPatch is a partial update of a property definition. Key and Type
// are immutable; supplying either with a different value fails validation.
type PropertyPatch struct {
	Key          *string
	Type         *types.PropertyType
	DisplayName  *string
	Required     *bool
	Config       *types.PropertyConfig
	DefaultValue any
	HasDefault   bool // distinguishes "clear the default" from "leave it"
	Description  *string
}

// CascadeFailure records one record the removeProperty cascade could not
// update.
type CascadeFailure struct {
	RecordID string `json:"recordId"`
	Reason   string `json:"reason"`
}

// CascadeReport summarizes the best-effort data strip that follows a
// property removal.
type CascadeReport struct {
	Attempted int              `json:"attempted"`
	Stripped  int              `json:"stripped"`
	Failures  []CascadeFailure `json:"failures,omitempty"`
}

// CreateTable creates a table, empty or with an initial property set.
// Returns a ValidationError if name is empty or initial contains duplicate
// or malformed definitions.
func (s *SchemaStore) CreateTable(workspaceID, name, description string, initial []types.PropertyDefinition) (*types.Table, error) {
	ve := &types.ValidationError{}
	if workspaceID == "" {
		ve.Add(types.FieldError{Key: "workspaceId", Message: "workspace ID must not be empty"})
	}
	if name == "" {
		ve.Add(types.FieldError{Key: "name", Message: "table name must not be empty"})
	}

	props := make(map[string]types.PropertyDefinition, len(initial))
	order := make([]string, 0, len(initial))
	for _, def := range initial {
		if _, dup := props[def.Key]; dup {
			ve.Add(types.FieldError{
				Key:     def.Key,
				Message: "duplicate property key in initial properties",
			})
			continue
		}
		if err := validate.Definition(def); err != nil {
			if defVE, ok := types.AsValidation(err); ok {
				ve.Merge(defVE)
				continue
			}
			return nil, err
		}
		props[def.Key] = def.Clone()
		order = append(order, def.Key)
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tbl := &types.Table{
		TableID:       newUUID(),
		WorkspaceID:   workspaceID,
		Name:          name,
		Description:   description,
		Properties:    props,
		PropertyOrder: order,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.backend.InsertTable(tbl); err != nil {
		return nil, fmt.Errorf("creating table: %w", err)
	}
	s.log.Info().Str("table_id", tbl.TableID).Str("workspace_id", workspaceID).
		Int("properties", len(props)).Msg("table created")
	return tbl, nil
}

// GetTable retrieves a table by ID.
func (s *SchemaStore) GetTable(id string) (*types.Table, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	return s.backend.GetTable(id)
}

// ListTables returns all tables of a workspace ordered by creation time.
func (s *SchemaStore) ListTables(workspaceID string) ([]*types.Table, error) {
	return s.backend.ListTables(workspaceID)
}

// UpdateTable applies a partial metadata update. Returns a ValidationError
// when the patch would clear the name.
func (s *SchemaStore) UpdateTable(id string, patch TablePatch) (*types.Table, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, types.Invalidf("name", "table name must not be empty")
	}
	return s.backend.MutateTable(id, func(tbl *types.Table) error {
		if patch.Name != nil {
			tbl.Name = *patch.Name
		}
		if patch.Description != nil {
			tbl.Description = *patch.Description
		}
		return nil
	})
}

// DeleteTable removes a table and cascades deletion of every record it owns.
// Irreversible.
func (s *SchemaStore) DeleteTable(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if err := s.backend.DeleteTable(id); err != nil {
		return err
	}
	s.log.Info().Str("table_id", id).Msg("table deleted")
	return nil
}

// AddProperty appends a new property to the table's schema. The new key goes
// to the end of the property order. Existing records are not backfilled; a
// required property over existing records leaves them non-conformant until
// their next update.
func (s *SchemaStore) AddProperty(tableID string, def types.PropertyDefinition) (*types.Table, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	if err := validate.Definition(def); err != nil {
		return nil, err
	}
	return s.backend.MutateTable(tableID, func(tbl *types.Table) error {
		if _, exists := tbl.Properties[def.Key]; exists {
			return types.Invalidf(def.Key, "property key already exists")
		}
		tbl.Properties[def.Key] = def.Clone()
		tbl.PropertyOrder = append(tbl.PropertyOrder, def.Key)
		return nil
	})
}

// UpdateProperty applies a partial update to a property definition.
// Attempting to change the key or the type fails with a ValidationError;
// a type change is modeled as remove+add, which clears existing data.
func (s *SchemaStore) UpdateProperty(tableID, key string, patch PropertyPatch) (*types.Table, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	return s.backend.MutateTable(tableID, func(tbl *types.Table) error {
		def, ok := tbl.Properties[key]
		if !ok {
			return types.ErrPropertyNotFound
		}
		if patch.Key != nil && *patch.Key != def.Key {
			return types.Invalidf(key, "property key is immutable")
		}
		if patch.Type != nil && *patch.Type != def.Type {
			return types.Invalidf(key, "property type is immutable; remove and re-add the property instead")
		}
		if patch.DisplayName != nil {
			def.DisplayName = *patch.DisplayName
		}
		if patch.Required != nil {
			def.Required = *patch.Required
		}
		if patch.Config != nil {
			def.Config = patch.Config.Clone()
		}
		if patch.HasDefault {
			def.DefaultValue = patch.DefaultValue
		}
		if patch.Description != nil {
			def.Description = *patch.Description
		}
		if err := validate.Definition(def); err != nil {
			return err
		}
		tbl.Properties[key] = def
		return nil
	})
}

// stripRetries bounds the CAS retries per record during a removal cascade.
const stripRetries = 3

// RemoveProperty removes a property from the schema and strips the key from
// every record of the table. The strip is best-effort: per-record failures
// are collected into the report instead of aborting the cascade, because a
// removed property with reported leftovers beats a schema left inconsistent.
func (s *SchemaStore) RemoveProperty(tableID, key string) (*types.Table, *CascadeReport, error) {
	if tableID == "" {
		return nil, nil, types.ErrInvalidID
	}
	tbl, err := s.backend.MutateTable(tableID, func(tbl *types.Table) error {
		if _, ok := tbl.Properties[key]; !ok {
			return types.ErrPropertyNotFound
		}
		delete(tbl.Properties, key)
		order := tbl.PropertyOrder[:0]
		for _, k := range tbl.PropertyOrder {
			if k != key {
				order = append(order, k)
			}
		}
		tbl.PropertyOrder = order
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	report, err := s.stripRecordKey(tableID, key)
	if err != nil {
		return nil, nil, err
	}
	if len(report.Failures) > 0 {
		s.log.Warn().Str("table_id", tableID).Str("key", key).
			Int("failed", len(report.Failures)).Msg("property removal cascade left records unstripped")
	}
	return tbl, report, nil
}

// stripRecordKey removes key from the data of every record in the table.
func (s *SchemaStore) stripRecordKey(tableID, key string) (*CascadeReport, error) {
	records, err := s.backend.ListRecords(tableID)
	if err != nil {
		return nil, fmt.Errorf("listing records for cascade: %w", err)
	}

	report := &CascadeReport{}
	for _, rec := range records {
		if _, has := rec.Data[key]; !has {
			continue
		}
		report.Attempted++
		if err := s.stripOne(rec, key); err != nil {
			report.Failures = append(report.Failures, CascadeFailure{
				RecordID: rec.RecordID,
				Reason:   err.Error(),
			})
			continue
		}
		report.Stripped++
	}
	return report, nil
}

// stripOne removes key from one record, retrying a bounded number of times
// when a concurrent writer wins the version race.
func (s *SchemaStore) stripOne(rec *types.Record, key string) error {
	for attempt := 0; ; attempt++ {
		updated := rec.Clone()
		delete(updated.Data, key)
		updated.Version = rec.Version + 1
		updated.UpdatedAt = time.Now().UTC()

		err := s.backend.ReplaceRecord(updated, rec.Version)
		if err == nil {
			return nil
		}
		if err == types.ErrNotFound {
			return nil // deleted concurrently; nothing left to strip
		}
		if err != types.ErrVersionConflict || attempt >= stripRetries {
			return err
		}
		rec, err = s.backend.GetRecord(rec.RecordID)
		if err == types.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if _, has := rec.Data[key]; !has {
			return nil
		}
	}
}

// ReorderProperties replaces the property display order. newOrder must be
// exactly a permutation of the current keys; otherwise the table is left
// unchanged and a ValidationError is returned.
func (s *SchemaStore) ReorderProperties(tableID string, newOrder []string) (*types.Table, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	return s.backend.MutateTable(tableID, func(tbl *types.Table) error {
		candidate := tbl.Clone()
		candidate.PropertyOrder = append([]string(nil), newOrder...)
		if !candidate.OrderConsistent() {
			return types.Invalidf("propertyOrder",
				"new order must be exactly a permutation of the current property keys")
		}
		tbl.PropertyOrder = candidate.PropertyOrder
		return nil
	})
}
