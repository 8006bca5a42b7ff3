package fakeapi

import (
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goliatone/go-farmform/pkg/model"
)

type fieldRecord struct {
	model.Field
}

type penRecord struct {
	ID        int
	Name      string
	FieldID   string
	ObjectIDs []int
}

type objectRecord struct {
	ID    int
	Name  string
	Owner string
}

type variableRecord struct {
	ID           int
	Name         string
	Type         model.VariableType
	DefaultValue model.FormValue
	Owner        string
	ObjectIDs    []int
}

type penVariableRecord struct {
	ID             int
	PenID          int
	VariableID     int
	TypeOfObjectID int
	Params         model.FormValue
}

type reportRecord struct {
	ID        int
	Name      string
	Comment   string
	FieldID   string
	CreatedAt time.Time
}

type measurementRecord struct {
	ID            int
	PenVariableID int
	ReportID      int
	SubjectID     int
	Value         string
	CreatedAt     time.Time
}

func (s *Server) allocLocked() int {
	s.nextID++
	return s.nextID
}

// Fields

func (s *Server) handleCreateField(w http.ResponseWriter, r *http.Request) {
	var body model.Field
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if msgs := required("name", body.Name); len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	body.ID = uuid.NewString()
	body.UserID = currentUser(r).ID
	body.CreatedAt = s.now().UTC()
	body.UpdatedAt = body.CreatedAt
	s.fields[body.ID] = &fieldRecord{Field: body}
	writeJSON(w, http.StatusCreated, body)
}

func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Field{}
	for _, f := range s.fields {
		if f.UserID == owner {
			out = append(out, f.Field)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetField(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Field not found")
		return
	}
	writeJSON(w, http.StatusOK, f.Field)
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var body model.Field
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Field not found")
		return
	}
	body.ID = f.ID
	body.UserID = f.UserID
	body.CreatedAt = f.CreatedAt
	body.UpdatedAt = s.now().UTC()
	if strings.TrimSpace(body.Name) == "" {
		body.Name = f.Name
	}
	f.Field = body
	writeJSON(w, http.StatusOK, f.Field)
}

func (s *Server) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	f, ok := s.fields[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Field not found")
		return
	}
	delete(s.fields, id)
	for penID, p := range s.pens {
		if p.FieldID == id {
			delete(s.pens, penID)
		}
	}
	writeJSON(w, http.StatusOK, f.Field)
}

// Pens

func (s *Server) penLocked(p *penRecord) model.Pen {
	out := model.Pen{ID: p.ID, Name: p.Name, FieldID: p.FieldID}
	for _, id := range p.ObjectIDs {
		if o, ok := s.objects[id]; ok {
			out.TypeOfObjects = append(out.TypeOfObjects, model.TypeOfObject{ID: o.ID, Name: o.Name})
		}
	}
	return out
}

func (s *Server) checkPenLocked(body model.CreatePen, partial bool) []string {
	var msgs []string
	if !partial || body.Name != "" {
		msgs = append(msgs, required("name", body.Name)...)
	}
	if !partial || body.FieldID != "" {
		if _, ok := s.fields[body.FieldID]; !ok {
			msgs = append(msgs, "fieldId must reference an existing field")
		}
	}
	for _, id := range body.TypeOfObjectIDs {
		if _, ok := s.objects[id]; !ok {
			msgs = append(msgs, fmt.Sprintf("type_of_object_ids contains unknown id %d", id))
		}
	}
	return msgs
}

func (s *Server) handleCreatePen(w http.ResponseWriter, r *http.Request) {
	var body model.CreatePen
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if msgs := s.checkPenLocked(body, false); len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}
	p := &penRecord{ID: s.allocLocked(), Name: body.Name, FieldID: body.FieldID, ObjectIDs: append([]int(nil), body.TypeOfObjectIDs...)}
	s.pens[p.ID] = p
	writeJSON(w, http.StatusCreated, s.penLocked(p))
}

func (s *Server) handleListPens(w http.ResponseWriter, r *http.Request) {
	fieldID := chi.URLParam(r, "fieldId")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Pen{}
	for _, p := range s.pens {
		if p.FieldID == fieldID {
			out = append(out, s.penLocked(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPen(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pens[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Pen not found")
		return
	}
	writeJSON(w, http.StatusOK, s.penLocked(p))
}

func (s *Server) handleUpdatePen(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var body model.CreatePen
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pens[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Pen not found")
		return
	}
	if msgs := s.checkPenLocked(body, true); len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}
	if body.Name != "" {
		p.Name = body.Name
	}
	if body.FieldID != "" {
		p.FieldID = body.FieldID
	}
	if body.TypeOfObjectIDs != nil {
		p.ObjectIDs = append([]int(nil), body.TypeOfObjectIDs...)
	}
	writeJSON(w, http.StatusOK, s.penLocked(p))
}

func (s *Server) handleDeletePen(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pens[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Pen not found")
		return
	}
	out := s.penLocked(p)
	delete(s.pens, id)
	for pvID, pv := range s.penVariables {
		if pv.PenID == id {
			delete(s.penVariables, pvID)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Types of object

func (s *Server) objectLocked(o *objectRecord) model.TypeOfObject {
	out := model.TypeOfObject{ID: o.ID, Name: o.Name}
	for _, v := range s.sortedVariablesLocked() {
		if slices.Contains(v.ObjectIDs, o.ID) {
			out.Variables = append(out.Variables, model.Variable{ID: v.ID, Name: v.Name, Type: v.Type, DefaultValue: v.DefaultValue})
		}
	}
	return out
}

func (s *Server) handleCreateObject(w http.ResponseWriter, r *http.Request) {
	var body model.CreateTypeOfObject
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if msgs := required("name", body.Name); len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := &objectRecord{ID: s.allocLocked(), Name: body.Name, Owner: currentUser(r).ID}
	s.objects[o.ID] = o
	for _, id := range body.VariableIDs {
		if v, ok := s.variables[id]; ok && !slices.Contains(v.ObjectIDs, o.ID) {
			v.ObjectIDs = append(v.ObjectIDs, o.ID)
		}
	}
	writeJSON(w, http.StatusCreated, s.objectLocked(o))
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r).ID
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.TypeOfObject{}
	for _, o := range s.objects {
		if o.Owner == owner {
			out = append(out, s.objectLocked(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Type of object not found")
		return
	}
	writeJSON(w, http.StatusOK, s.objectLocked(o))
}

func (s *Server) handleUpdateObject(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var body model.CreateTypeOfObject
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Type of object not found")
		return
	}
	if strings.TrimSpace(body.Name) != "" {
		o.Name = body.Name
	}
	writeJSON(w, http.StatusOK, s.objectLocked(o))
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Type of object not found")
		return
	}
	out := s.objectLocked(o)
	delete(s.objects, id)
	for _, v := range s.variables {
		v.ObjectIDs = slices.DeleteFunc(v.ObjectIDs, func(x int) bool { return x == id })
	}
	for _, p := range s.pens {
		p.ObjectIDs = slices.DeleteFunc(p.ObjectIDs, func(x int) bool { return x == id })
	}
	writeJSON(w, http.StatusOK, out)
}

// Variables

func (s *Server) sortedVariablesLocked() []*variableRecord {
	out := make([]*variableRecord, 0, len(s.variables))
	for _, v := range s.variables {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) variableLocked(v *variableRecord) model.Variable {
	out := model.Variable{ID: v.ID, Name: v.Name, Type: v.Type, DefaultValue: v.DefaultValue}
	for _, id := range v.ObjectIDs {
		if o, ok := s.objects[id]; ok {
			out.TypeOfObjects = append(out.TypeOfObjects, model.TypeOfObject{ID: o.ID, Name: o.Name})
		}
	}
	return out
}

func checkVariable(body model.CreateVariable, partial bool) []string {
	var msgs []string
	if !partial || body.Name != "" {
		msgs = append(msgs, required("name", body.Name)...)
	}
	if !partial || body.Type != "" {
		if body.Type.Kind() == "" {
			msgs = append(msgs, "type must be one of the following values: NUMBER, CATEGORICAL")
		}
	}
	if !partial || !body.DefaultValue.IsZero() {
		switch {
		case body.DefaultValue.IsZero():
			msgs = append(msgs, "defaultValue should not be empty")
		case body.Type.Kind() != "" && body.DefaultValue.Kind != body.Type.Kind():
			msgs = append(msgs, "defaultValue does not match type")
		}
	}
	return msgs
}

func (s *Server) handleCreateVariable(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "id")
	var body model.CreateVariable
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if msgs := checkVariable(body, false); len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := &variableRecord{
		ID:           s.allocLocked(),
		Name:         body.Name,
		Type:         body.Type,
		DefaultValue: body.DefaultValue,
		Owner:        owner,
	}
	for _, id := range body.TypeOfObjectIDs {
		if _, ok := s.objects[id]; ok && !slices.Contains(v.ObjectIDs, id) {
			v.ObjectIDs = append(v.ObjectIDs, id)
		}
	}
	s.variables[v.ID] = v
	writeJSON(w, http.StatusCreated, s.variableLocked(v))
}

func (s *Server) handleListVariables(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Variable{}
	for _, v := range s.sortedVariablesLocked() {
		if v.Owner == owner {
			out = append(out, s.variableLocked(v))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListVariablesByObject(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Variable{}
	for _, v := range s.sortedVariablesLocked() {
		if slices.Contains(v.ObjectIDs, id) {
			out = append(out, s.variableLocked(v))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetVariable(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variables[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Variable not found")
		return
	}
	writeJSON(w, http.StatusOK, s.variableLocked(v))
}

func (s *Server) handleUpdateVariable(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var body model.CreateVariable
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if msgs := checkVariable(body, true); len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variables[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Variable not found")
		return
	}
	if body.Name != "" {
		v.Name = body.Name
	}
	if body.Type != "" {
		v.Type = body.Type
	}
	if !body.DefaultValue.IsZero() {
		v.DefaultValue = body.DefaultValue
	}
	if body.TypeOfObjectIDs != nil {
		v.ObjectIDs = nil
		for _, objID := range body.TypeOfObjectIDs {
			if _, ok := s.objects[objID]; ok && !slices.Contains(v.ObjectIDs, objID) {
				v.ObjectIDs = append(v.ObjectIDs, objID)
			}
		}
	}
	writeJSON(w, http.StatusOK, s.variableLocked(v))
}

func (s *Server) handleDeleteVariable(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variables[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Variable not found")
		return
	}
	out := s.variableLocked(v)
	delete(s.variables, id)
	for pvID, pv := range s.penVariables {
		if pv.VariableID == id {
			delete(s.penVariables, pvID)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Pen variables

func (s *Server) penVariableLocked(pv *penVariableRecord) model.PenVariable {
	out := model.PenVariable{
		ID:               pv.ID,
		PenID:            pv.PenID,
		VariableID:       pv.VariableID,
		TypeOfObjectID:   pv.TypeOfObjectID,
		CustomParameters: pv.Params,
	}
	if v, ok := s.variables[pv.VariableID]; ok {
		out.Variable = model.Variable{ID: v.ID, Name: v.Name, Type: v.Type, DefaultValue: v.DefaultValue}
	}
	return out
}

func (s *Server) findPenVariableLocked(penID, variableID, objID int) *penVariableRecord {
	for _, pv := range s.penVariables {
		if pv.PenID == penID && pv.VariableID == variableID && pv.TypeOfObjectID == objID {
			return pv
		}
	}
	return nil
}

func (s *Server) handleCreatePenVariable(w http.ResponseWriter, r *http.Request) {
	var body model.CreatePenVariable
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var msgs []string
	if _, ok := s.pens[body.PenID]; !ok {
		msgs = append(msgs, "penId must reference an existing pen")
	}
	v, ok := s.variables[body.VariableID]
	if !ok {
		msgs = append(msgs, "variableId must reference an existing variable")
	}
	if _, ok := s.objects[body.TypeOfObjectID]; !ok {
		msgs = append(msgs, "typeOfObjectId must reference an existing type of object")
	}
	if len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}
	if s.findPenVariableLocked(body.PenID, body.VariableID, body.TypeOfObjectID) != nil {
		writeError(w, http.StatusConflict, "Variable already attached to this pen")
		return
	}
	params := body.CustomParameters
	if params.IsZero() {
		params = v.DefaultValue
	}
	pv := &penVariableRecord{
		ID:             s.allocLocked(),
		PenID:          body.PenID,
		VariableID:     body.VariableID,
		TypeOfObjectID: body.TypeOfObjectID,
		Params:         params,
	}
	s.penVariables[pv.ID] = pv
	writeJSON(w, http.StatusCreated, s.penVariableLocked(pv))
}

func (s *Server) handleListPenVariables(w http.ResponseWriter, r *http.Request) {
	objID, ok := intParam(w, r, "typeOfObjectId")
	if !ok {
		return
	}
	penID, ok := intParam(w, r, "penId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.PenVariable{}
	for _, pv := range s.penVariables {
		if pv.PenID == penID && pv.TypeOfObjectID == objID {
			out = append(out, s.penVariableLocked(pv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) penVariableParams(w http.ResponseWriter, r *http.Request) (int, int, int, bool) {
	penID, ok := intParam(w, r, "penId")
	if !ok {
		return 0, 0, 0, false
	}
	variableID, ok := intParam(w, r, "variableId")
	if !ok {
		return 0, 0, 0, false
	}
	objID, ok := intParam(w, r, "typeOfObjectId")
	if !ok {
		return 0, 0, 0, false
	}
	return penID, variableID, objID, true
}

func (s *Server) handleUpdatePenVariable(w http.ResponseWriter, r *http.Request) {
	penID, variableID, objID, ok := s.penVariableParams(w, r)
	if !ok {
		return
	}
	var body model.CreatePenVariable
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.CustomParameters.IsZero() {
		writeError(w, http.StatusBadRequest, "custom_parameters should not be empty")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pv := s.findPenVariableLocked(penID, variableID, objID)
	if pv == nil {
		writeError(w, http.StatusNotFound, "Pen variable not found")
		return
	}
	pv.Params = body.CustomParameters
	writeJSON(w, http.StatusOK, s.penVariableLocked(pv))
}

func (s *Server) handleDeletePenVariable(w http.ResponseWriter, r *http.Request) {
	penID, variableID, objID, ok := s.penVariableParams(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pv := s.findPenVariableLocked(penID, variableID, objID)
	if pv == nil {
		writeError(w, http.StatusNotFound, "Pen variable not found")
		return
	}
	out := s.penVariableLocked(pv)
	delete(s.penVariables, pv.ID)
	writeJSON(w, http.StatusOK, out)
}

// Reports

func (s *Server) reportLocked(rec *reportRecord, withMeasurements bool) model.Report {
	out := model.Report{ID: rec.ID, Name: rec.Name, Comment: rec.Comment, FieldID: rec.FieldID, CreatedAt: rec.CreatedAt, UpdatedAt: rec.CreatedAt}
	if !withMeasurements {
		return out
	}
	for _, m := range s.measurements {
		if m.ReportID != rec.ID {
			continue
		}
		measurement := model.Measurement{ID: m.ID, Value: m.Value, ReportID: m.ReportID, Subject: model.Subject{ID: m.SubjectID}, CreatedAt: m.CreatedAt}
		if pv, ok := s.penVariables[m.PenVariableID]; ok {
			measurement.PenVariable = s.penVariableLocked(pv)
		}
		out.Measurements = append(out.Measurements, measurement)
	}
	return out
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	fieldID := chi.URLParam(r, "fieldId")
	var body model.ReportEnvelope
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fields[fieldID]; !ok {
		writeError(w, http.StatusNotFound, "Field not found")
		return
	}
	now := s.now().UTC()
	rec := &reportRecord{ID: s.allocLocked(), Name: strings.TrimSpace(body.Report.Name), Comment: body.Report.Comment, FieldID: fieldID, CreatedAt: now}
	if rec.Name == "" {
		rec.Name = "Reporte " + now.Format("2006-01-02")
	}
	s.reports[rec.ID] = rec
	writeJSON(w, http.StatusCreated, s.reportLocked(rec, false))
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	fieldID := chi.URLParam(r, "fieldId")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Report{}
	for _, rec := range s.reports {
		if rec.FieldID == fieldID {
			out = append(out, s.reportLocked(rec, false))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.reports[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	writeJSON(w, http.StatusOK, s.reportLocked(rec, true))
}

func (s *Server) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	var body model.ReportEnvelope
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.reports[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	if name := strings.TrimSpace(body.Report.Name); name != "" {
		rec.Name = name
	}
	rec.Comment = body.Report.Comment
	writeJSON(w, http.StatusOK, s.reportLocked(rec, false))
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.reports[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	out := s.reportLocked(rec, false)
	delete(s.reports, id)
	kept := s.measurements[:0]
	for _, m := range s.measurements {
		if m.ReportID != id {
			kept = append(kept, m)
		}
	}
	s.measurements = kept
	writeJSON(w, http.StatusOK, out)
}

// Measurements

func (s *Server) handleCreateMeasurements(w http.ResponseWriter, r *http.Request) {
	var body model.MeasurementBatch
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(body.Measurements) == 0 {
		writeError(w, http.StatusBadRequest, "measurements should not be empty")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var msgs []string
	for i, m := range body.Measurements {
		prefix := "measurements." + strconv.Itoa(i) + "."
		if strings.TrimSpace(m.Value) == "" {
			msgs = append(msgs, prefix+"value should not be empty")
		}
		if _, ok := s.reports[m.ReportID]; !ok {
			msgs = append(msgs, prefix+"report_id must reference an existing report")
		}
		if _, ok := s.penVariables[m.PenVariableID]; !ok {
			msgs = append(msgs, prefix+"pen_variable_type_of_object_id must reference an existing pen variable")
		}
	}
	if len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}

	subjectID := body.SubjectID
	if subjectID == 0 {
		subjectID = s.allocLocked()
	}
	now := s.now().UTC()
	out := make([]model.Measurement, 0, len(body.Measurements))
	for _, m := range body.Measurements {
		rec := measurementRecord{
			ID:            s.allocLocked(),
			PenVariableID: m.PenVariableID,
			ReportID:      m.ReportID,
			SubjectID:     subjectID,
			Value:         m.Value,
			CreatedAt:     now,
		}
		s.measurements = append(s.measurements, rec)
		out = append(out, model.Measurement{
			ID:          rec.ID,
			Value:       rec.Value,
			ReportID:    rec.ReportID,
			Subject:     model.Subject{ID: subjectID, Name: body.Name},
			PenVariable: s.penVariableLocked(s.penVariables[m.PenVariableID]),
			CreatedAt:   now,
		})
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleMeasurementStats(w http.ResponseWriter, r *http.Request) {
	fieldID := chi.URLParam(r, "fieldId")
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := model.MeasurementStats{
		ByObject:        map[string]int{},
		ByPen:           map[string]int{},
		ByVariable:      map[string]int{},
		ByVariableByPen: map[string]map[string]int{},
	}
	for _, m := range s.measurements {
		rec, ok := s.reports[m.ReportID]
		if !ok || rec.FieldID != fieldID {
			continue
		}
		stats.Total++
		pv, ok := s.penVariables[m.PenVariableID]
		if !ok {
			continue
		}
		var penName, objName, varName string
		if p, ok := s.pens[pv.PenID]; ok {
			penName = p.Name
		}
		if o, ok := s.objects[pv.TypeOfObjectID]; ok {
			objName = o.Name
		}
		if v, ok := s.variables[pv.VariableID]; ok {
			varName = v.Name
		}
		stats.ByPen[penName]++
		stats.ByObject[objName]++
		stats.ByVariable[varName]++
		if stats.ByVariableByPen[varName] == nil {
			stats.ByVariableByPen[varName] = map[string]int{}
		}
		stats.ByVariableByPen[varName][penName]++
	}
	writeJSON(w, http.StatusOK, stats)
}

// Analytics

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if u := currentUser(r); u.Role != "ADMIN" {
		writeError(w, http.StatusForbidden, "Forbidden resource")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	basic := model.BasicStats{
		TotalUsers:        len(s.users),
		TotalFields:       len(s.fields),
		TotalPens:         len(s.pens),
		TotalMeasurements: len(s.measurements),
		TotalReports:      len(s.reports),
	}
	active := map[string]struct{}{}
	for _, u := range s.users {
		if u.Verified {
			basic.VerifiedUsers++
		}
	}
	for _, f := range s.fields {
		active[f.UserID] = struct{}{}
	}
	basic.ActiveUsers = len(active)
	subjects := map[int]struct{}{}
	var growth model.MonthlyGrowth
	for _, m := range s.measurements {
		subjects[m.SubjectID] = struct{}{}
		if !m.CreatedAt.Before(monthStart) {
			growth.NewMeasurementsMonth++
		}
	}
	basic.TotalSubjects = len(subjects)
	for _, f := range s.fields {
		if !f.CreatedAt.Before(monthStart) {
			growth.NewFieldsMonth++
		}
	}
	for _, rec := range s.reports {
		if !rec.CreatedAt.Before(monthStart) {
			growth.NewReportsMonth++
		}
	}

	usage := model.UsageEvaluation{UsageLevel: "low"}
	if basic.TotalUsers > 0 {
		usage.AdoptionRate = float64(basic.ActiveUsers) / float64(basic.TotalUsers) * 100
	}
	if basic.ActiveUsers > 0 {
		usage.AvgFieldsPerUser = float64(basic.TotalFields) / float64(basic.ActiveUsers)
	}
	if basic.TotalFields > 0 {
		usage.AvgPensPerField = float64(basic.TotalPens) / float64(basic.TotalFields)
	}
	if basic.TotalReports > 0 {
		usage.AvgMeasurementsPerReport = float64(basic.TotalMeasurements) / float64(basic.TotalReports)
	}
	switch {
	case basic.ActiveUsers >= 5:
		usage.UsageLevel = "high"
	case basic.ActiveUsers >= 2:
		usage.UsageLevel = "medium"
	}
	usage.HasGrowth = growth.NewUsersMonth > 0
	usage.HasRegularActivity = growth.NewMeasurementsMonth > 10

	writeJSON(w, http.StatusOK, model.AnalyticsOverview{
		BasicStats:      basic,
		MonthlyGrowth:   growth,
		UsageEvaluation: usage,
		GeneratedAt:     now,
	})
}

func (s *Server) handleLastActivity(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out model.LastActivity
	for _, rec := range s.reports {
		if rec.CreatedAt.After(out.ActivityDate) {
			out.ActivityType = "report"
			out.ActivityDate = rec.CreatedAt
		}
	}
	for _, m := range s.measurements {
		if m.CreatedAt.After(out.ActivityDate) {
			out.ActivityType = "measurement"
			out.ActivityDate = m.CreatedAt
		}
	}
	if out.ActivityType == "" {
		writeError(w, http.StatusNotFound, "No activity found")
		return
	}
	out.DiffSeconds = int64(s.now().Sub(out.ActivityDate) / time.Second)
	out.TimeAgo = fmt.Sprintf("%d s", out.DiffSeconds)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthlyData(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := map[string]*model.MonthlyData{}
	row := func(t time.Time) *model.MonthlyData {
		key := t.UTC().Format("2006-01")
		if rows[key] == nil {
			rows[key] = &model.MonthlyData{Month: key}
		}
		return rows[key]
	}
	for _, m := range s.measurements {
		row(m.CreatedAt).MeasurementsCount++
	}
	for _, rec := range s.reports {
		row(rec.CreatedAt).ReportsCount++
	}
	out := make([]model.MonthlyData, 0, len(rows))
	for _, entry := range rows {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := map[string]*model.UserStats{}
	for _, u := range s.users {
		byID[u.ID] = &model.UserStats{UserID: u.ID, Username: u.Username, Email: u.Email}
	}
	fieldOwner := map[string]string{}
	for _, f := range s.fields {
		fieldOwner[f.ID] = f.UserID
		if st := byID[f.UserID]; st != nil {
			st.FieldsCount++
		}
	}
	for _, p := range s.pens {
		if st := byID[fieldOwner[p.FieldID]]; st != nil {
			st.PensCount++
		}
	}
	reportOwner := map[int]string{}
	for _, rec := range s.reports {
		reportOwner[rec.ID] = fieldOwner[rec.FieldID]
		if st := byID[fieldOwner[rec.FieldID]]; st != nil {
			st.ReportsCount++
		}
	}
	for _, m := range s.measurements {
		if st := byID[reportOwner[m.ReportID]]; st != nil {
			st.MeasurementsCount++
		}
	}
	out := make([]model.UserStats, 0, len(byID))
	for _, st := range byID {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	writeJSON(w, http.StatusOK, out)
}
