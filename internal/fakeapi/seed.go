package fakeapi

import (
	"github.com/google/uuid"

	"github.com/goliatone/go-farmform/pkg/model"
)

// SeedField stores a field owned by userID and returns its id.
func (s *Server) SeedField(userID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	f := model.Field{ID: uuid.NewString(), Name: name, UserID: userID, CreatedAt: now, UpdatedAt: now}
	s.fields[f.ID] = &fieldRecord{Field: f}
	return f.ID
}

// SeedTypeOfObject stores a type of object owned by userID.
func (s *Server) SeedTypeOfObject(userID, name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := &objectRecord{ID: s.allocLocked(), Name: name, Owner: userID}
	s.objects[o.ID] = o
	return o.ID
}

// SeedPen stores a pen housing the given types of object.
func (s *Server) SeedPen(fieldID, name string, typeOfObjectIDs ...int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &penRecord{ID: s.allocLocked(), Name: name, FieldID: fieldID, ObjectIDs: append([]int(nil), typeOfObjectIDs...)}
	s.pens[p.ID] = p
	return p.ID
}

// SeedVariable stores a variable linked to the given types of object.
func (s *Server) SeedVariable(userID, name string, value model.FormValue, typeOfObjectIDs ...int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind := model.VariableTypeNumber
	if value.Kind == model.ValueKindCategorical {
		kind = model.VariableTypeCategorical
	}
	v := &variableRecord{
		ID:           s.allocLocked(),
		Name:         name,
		Type:         kind,
		DefaultValue: value,
		Owner:        userID,
		ObjectIDs:    append([]int(nil), typeOfObjectIDs...),
	}
	s.variables[v.ID] = v
	return v.ID
}

// SeedPenVariable attaches a variable to a type of object in a pen. Zero
// params copy the variable default.
func (s *Server) SeedPenVariable(penID, variableID, typeOfObjectID int, params model.FormValue) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if params.IsZero() {
		if v, ok := s.variables[variableID]; ok {
			params = v.DefaultValue
		}
	}
	pv := &penVariableRecord{ID: s.allocLocked(), PenID: penID, VariableID: variableID, TypeOfObjectID: typeOfObjectID, Params: params}
	s.penVariables[pv.ID] = pv
	return pv.ID
}

// SeedReport stores a report on a field.
func (s *Server) SeedReport(fieldID, name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &reportRecord{ID: s.allocLocked(), Name: name, FieldID: fieldID, CreatedAt: s.now().UTC()}
	s.reports[rec.ID] = rec
	return rec.ID
}

// Reports returns the stored reports of a field.
func (s *Server) Reports(fieldID string) []model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Report
	for _, rec := range s.reports {
		if rec.FieldID == fieldID {
			out = append(out, s.reportLocked(rec, false))
		}
	}
	return out
}

// Measurements returns every stored measurement in insertion order.
func (s *Server) Measurements() []model.MeasurementInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.MeasurementInput, 0, len(s.measurements))
	for _, m := range s.measurements {
		out = append(out, model.MeasurementInput{PenVariableID: m.PenVariableID, Value: m.Value, ReportID: m.ReportID, SubjectID: m.SubjectID})
	}
	return out
}
