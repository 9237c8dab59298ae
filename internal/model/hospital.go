package model

// Hospital is the tenancy root: credentials, caregivers, assignments and
// appointments are all scoped to one hospital id. The platform operator
// manages the roster; hospital staff never do.
type Hospital struct {
	Base
	Name    string `db:"name" json:"name"`
	Address string `db:"address" json:"address"`
}

type CreateHospitalRequest struct {
	Name    string `json:"name" binding:"required,min=2"`
	Address string `json:"address" binding:"required"`
}

// UpdateHospitalRequest carries only the fields to change; empty fields
// keep their stored value.
type UpdateHospitalRequest struct {
	Name    string `json:"name" binding:"omitempty,min=2"`
	Address string `json:"address" binding:"omitempty"`
}
