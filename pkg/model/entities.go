package model

import "time"

// Field is a top-level farm/land unit owned by a user.
type Field struct {
	ID              string    `json:"id,omitempty"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Location        string    `json:"location,omitempty"`
	Latitude        float64   `json:"latitude,omitempty"`
	Longitude       float64   `json:"longitude,omitempty"`
	ProductionType  string    `json:"production_type,omitempty"`
	Breed           string    `json:"breed,omitempty"`
	Installation    string    `json:"installation,omitempty"`
	NumberOfAnimals int       `json:"number_of_animals,omitempty"`
	UserID          string    `json:"userId,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

// TypeOfObject is a category of measurable subject scoped to a user.
type TypeOfObject struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Variables []Variable `json:"variables,omitempty"`
}

// CreateTypeOfObject is the body for POST /type-of-objects.
type CreateTypeOfObject struct {
	Name        string `json:"name"`
	VariableIDs []int  `json:"variables,omitempty"`
}

// Pen is a sub-division of a Field.
type Pen struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	FieldID       string         `json:"fieldId,omitempty"`
	TypeOfObjects []TypeOfObject `json:"type_of_objects,omitempty"`
}

// CreatePen is the body for POST /pens and PATCH /pens/{id}.
type CreatePen struct {
	Name            string `json:"name"`
	FieldID         string `json:"fieldId"`
	TypeOfObjectIDs []int  `json:"type_of_object_ids"`
}

// Variable is a named measurable property (also called attribute).
type Variable struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Type          VariableType   `json:"type"`
	DefaultValue  FormValue      `json:"defaultValue"`
	TypeOfObjects []TypeOfObject `json:"type_of_objects,omitempty"`
}

// CreateVariable is the body for POST /variables/{userId} and PATCH /variables/{id}.
type CreateVariable struct {
	Name            string       `json:"name"`
	Type            VariableType `json:"type"`
	DefaultValue    FormValue    `json:"defaultValue"`
	TypeOfObjectIDs []int        `json:"type_of_object_ids"`
}

// PenVariable binds a variable to a type of object inside a pen with its own
// custom parameters (pen-variable-type-of-object on the backend).
type PenVariable struct {
	ID               int       `json:"id,omitempty"`
	PenID            int       `json:"penId"`
	VariableID       int       `json:"variableId"`
	TypeOfObjectID   int       `json:"typeOfObjectId"`
	CustomParameters FormValue `json:"custom_parameters"`
	Variable         Variable  `json:"variable"`
}

// CreatePenVariable is the body for POST/PATCH pens-variables-type-of-objects.
type CreatePenVariable struct {
	PenID            int       `json:"penId,omitempty"`
	VariableID       int       `json:"variableId,omitempty"`
	TypeOfObjectID   int       `json:"typeOfObjectId,omitempty"`
	CustomParameters FormValue `json:"custom_parameters"`
}

// Report groups measurements taken on a field.
type Report struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Comment      string        `json:"comment,omitempty"`
	FieldID      string        `json:"field_id,omitempty"`
	Measurements []Measurement `json:"measurements,omitempty"`
	CreatedAt    time.Time     `json:"created_at,omitzero"`
	UpdatedAt    time.Time     `json:"updated_at,omitzero"`
}

// CreateReport is the report half of POST /reports/byFieldId/{fieldId}.
type CreateReport struct {
	Name    string `json:"name,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// ReportEnvelope is the combined body accepted by the report endpoints.
type ReportEnvelope struct {
	Report CreateReport `json:"report"`
}

// Subject is the individual a measurement was taken on.
type Subject struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	TypeOfObject TypeOfObject `json:"type_of_object"`
}

// Measurement is a recorded value of a variable for a subject.
type Measurement struct {
	ID          int         `json:"id"`
	Value       string      `json:"value"`
	ReportID    int         `json:"report_id"`
	Subject     Subject     `json:"subject"`
	PenVariable PenVariable `json:"pen_variable_type_of_object"`
	CreatedAt   time.Time   `json:"created_at,omitzero"`
}

// MeasurementInput is one value inside a MeasurementBatch.
type MeasurementInput struct {
	PenVariableID int    `json:"pen_variable_type_of_object_id"`
	Value         string `json:"value"`
	ReportID      int    `json:"report_id"`
	SubjectID     int    `json:"subject_id,omitempty"`
}

// MeasurementBatch is the composite payload for POST /measurements.
type MeasurementBatch struct {
	Name           string             `json:"name,omitempty"`
	TypeOfObjectID int                `json:"type_of_object_id,omitempty"`
	SubjectID      int                `json:"subject_id,omitempty"`
	Measurements   []MeasurementInput `json:"measurements"`
}

// MeasurementStats aggregates measurement counts.
type MeasurementStats struct {
	Total           int                       `json:"total_measurement"`
	ByObject        map[string]int            `json:"measurement_by_object,omitempty"`
	ByPen           map[string]int            `json:"measurement_by_pen,omitempty"`
	ByVariable      map[string]int            `json:"measurement_by_variable,omitempty"`
	ByVariableByPen map[string]map[string]int `json:"measurement_by_variable_by_pen,omitempty"`
}

// Selection is the outcome of the Pen → Type-of-Object → Variable cascade.
type Selection struct {
	PenID          int   `json:"penId"`
	TypeOfObjectID int   `json:"typeOfObjectId"`
	VariableIDs    []int `json:"variableIds"`
}

// BasicStats are the platform totals of the analytics overview.
type BasicStats struct {
	TotalUsers        int     `json:"totalUsers"`
	VerifiedUsers     int     `json:"verifiedUsers"`
	ActiveUsers       int     `json:"activeUsers"`
	TotalFields       int     `json:"totalFields"`
	TotalPens         int     `json:"totalPens"`
	TotalMeasurements int     `json:"totalMeasurements"`
	TotalReports      int     `json:"totalReports"`
	TotalSubjects     int     `json:"totalSubjects"`
	TotalProductivity float64 `json:"totalProductivity"`
}

// MonthlyGrowth counts what was created during the current month.
type MonthlyGrowth struct {
	NewUsersMonth        int `json:"newUsersMonth"`
	NewFieldsMonth       int `json:"newFieldsMonth"`
	NewMeasurementsMonth int `json:"newMeasurementsMonth"`
	NewReportsMonth      int `json:"newReportsMonth"`
}

// UsageEvaluation summarises adoption.
type UsageEvaluation struct {
	AdoptionRate             float64 `json:"adoptionRate"`
	AvgFieldsPerUser         float64 `json:"avgFieldsPerUser"`
	AvgPensPerField          float64 `json:"avgPensPerField"`
	AvgMeasurementsPerReport float64 `json:"avgMeasurementsPerReport"`
	UsageLevel               string  `json:"usageLevel"`
	HasGrowth                bool    `json:"hasGrowth"`
	HasRegularActivity       bool    `json:"hasRegularActivity"`
}

// AnalyticsOverview is returned by GET /analytics/overview.
type AnalyticsOverview struct {
	BasicStats      BasicStats      `json:"basicStats"`
	MonthlyGrowth   MonthlyGrowth   `json:"monthlyGrowth"`
	UsageEvaluation UsageEvaluation `json:"usageEvaluation"`
	GeneratedAt     time.Time       `json:"generatedAt,omitzero"`
}

// LastActivity is returned by GET /analytics/last-activity.
type LastActivity struct {
	ActivityType string    `json:"activityType"`
	ActivityDate time.Time `json:"activityDate,omitzero"`
	UserEmail    string    `json:"userEmail"`
	TimeAgo      string    `json:"timeAgo"`
	DiffSeconds  int64     `json:"diffSeconds"`
}

// MonthlyData is one row of GET /analytics/monthly-data.
type MonthlyData struct {
	Month             string `json:"month"`
	MeasurementsCount int    `json:"measurementsCount"`
	ReportsCount      int    `json:"reportsCount"`
	UsersCount        int    `json:"usersCount"`
}

// UserStats is one row of GET /analytics/user-stats.
type UserStats struct {
	UserID            string `json:"userId"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	FieldsCount       int    `json:"fieldsCount"`
	PensCount         int    `json:"pensCount"`
	ReportsCount      int    `json:"reportsCount"`
	MeasurementsCount int    `json:"measurementsCount"`
}
