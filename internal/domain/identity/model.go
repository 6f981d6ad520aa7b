package identity

import (
	"time"

	"github.com/google/uuid"
)

// Roles assignable to a user account.
const (
	RoleAdmin      = "admin"
	RoleDoctor     = "doctor"
	RolePatient    = "patient"
	RoleCashier    = "cashier"
	RolePharmacist = "pharmacist"
	RoleLabTech    = "lab_tech"
)

var validRoles = map[string]bool{
	RoleAdmin: true, RoleDoctor: true, RolePatient: true,
	RoleCashier: true, RolePharmacist: true, RoleLabTech: true,
}

// User maps to the users table.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Patient maps to the patients table.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	Name             string     `db:"name" json:"name"`
	CNIC             *string    `db:"cnic" json:"cnic,omitempty"`
	DOB              *time.Time `db:"dob" json:"dob,omitempty"`
	Gender           *string    `db:"gender" json:"gender,omitempty"`
	ContactInfo      *string    `db:"contact_info" json:"contact_info,omitempty"`
	Address          *string    `db:"address" json:"address,omitempty"`
	BloodType        *string    `db:"blood_type" json:"blood_type,omitempty"`
	Allergies        *string    `db:"allergies" json:"allergies,omitempty"`
	MedicalHistory   *string    `db:"medical_history" json:"medical_history,omitempty"`
	EmergencyContact *string    `db:"emergency_contact" json:"emergency_contact,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Doctor maps to the doctors table. Shift times are normalized HH:MM strings;
// both stay nil until the doctor defines shift timings.
type Doctor struct {
	ID              uuid.UUID `db:"id" json:"id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	Name            string    `db:"name" json:"name"`
	Specialization  *string   `db:"specialization" json:"specialization,omitempty"`
	ConsultationFee float64   `db:"consultation_fee" json:"consultation_fee"`
	ShiftStart      *string   `db:"shift_start" json:"shift_start,omitempty"`
	ShiftEnd        *string   `db:"shift_end" json:"shift_end,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterInput carries the registration payload. Profile fields apply to the
// role-specific profile row created alongside the user.
type RegisterInput struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	Role            string  `json:"role"`
	CNIC            *string `json:"cnic,omitempty"`
	Gender          *string `json:"gender,omitempty"`
	ContactInfo     *string `json:"contact_info,omitempty"`
	Specialization  *string `json:"specialization,omitempty"`
	ConsultationFee float64 `json:"consultation_fee,omitempty"`
}

// LoginInput carries the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the login and register response.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
