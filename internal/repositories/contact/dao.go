package contact

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

const contactTable = "contacts"

// Row mirrors the contacts table. email_normalized and phone_normalized are
// the indexed lookup columns and are always derived from email/phone on write;
// the raw values are preserved as entered.
type Row struct {
	ID              string                         `db:"id"`
	TenantID        string                         `db:"tenant_id"`
	FirstName       sql.NullString                 `db:"first_name"`
	LastName        sql.NullString                 `db:"last_name"`
	Email           sql.NullString                 `db:"email"`
	EmailNormalized sql.NullString                 `db:"email_normalized"`
	Phone           sql.NullString                 `db:"phone"`
	PhoneNormalized sql.NullString                 `db:"phone_normalized"`
	Whatsapp        sql.NullString                 `db:"whatsapp"`
	Company         sql.NullString                 `db:"company"`
	JobTitle        sql.NullString                 `db:"job_title"`
	Status          string                         `db:"status"`
	Tags            pq.StringArray                 `db:"tags"`
	CustomFields    database.JSONB[map[string]any] `db:"custom_fields"`
	LastContactedAt sql.NullTime                   `db:"last_contacted_at"`
	CreatedAt       time.Time                      `db:"created_at"`
	UpdatedAt       time.Time                      `db:"updated_at"`
}

var contactStruct = database.NewStruct(new(Row))

func FromContact(contact *models.Contact) *Row {
	return &Row{
		ID:              contact.ID.String(),
		TenantID:        contact.TenantID,
		FirstName:       sql.NullString{String: contact.FirstName, Valid: contact.FirstName != ""},
		LastName:        sql.NullString{String: contact.LastName, Valid: contact.LastName != ""},
		Email:           sql.NullString{String: contact.Email, Valid: contact.Email != ""},
		EmailNormalized: sql.NullString{String: normalizers.NormalizeEmail(contact.Email), Valid: contact.Email != ""},
		Phone:           sql.NullString{String: contact.Phone, Valid: contact.Phone != ""},
		PhoneNormalized: sql.NullString{String: normalizers.NormalizePhone(contact.Phone), Valid: contact.Phone != ""},
		Whatsapp:        sql.NullString{String: contact.Whatsapp, Valid: contact.Whatsapp != ""},
		Company:         sql.NullString{String: contact.Company, Valid: contact.Company != ""},
		JobTitle:        sql.NullString{String: contact.JobTitle, Valid: contact.JobTitle != ""},
		Status:          string(contact.Status),
		Tags:            pq.StringArray(contact.Tags),
		CustomFields:    database.JSONB[map[string]any]{Data: contact.CustomFields},
		LastContactedAt: toNullTime(contact.LastContactedAt),
		CreatedAt:       contact.CreatedAt,
		UpdatedAt:       contact.UpdatedAt,
	}
}

func ToContact(row *Row) models.Contact {
	id, _ := uuid.Parse(row.ID)
	return models.Contact{
		ID:              id,
		TenantID:        row.TenantID,
		FirstName:       row.FirstName.String,
		LastName:        row.LastName.String,
		Email:           row.Email.String,
		Phone:           row.Phone.String,
		Whatsapp:        row.Whatsapp.String,
		Company:         row.Company.String,
		JobTitle:        row.JobTitle.String,
		Status:          models.ContactStatus(row.Status),
		Tags:            []string(row.Tags),
		CustomFields:    row.CustomFields.Data,
		LastContactedAt: fromNullTime(row.LastContactedAt),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func ToContacts(rows []Row) []models.Contact {
	contacts := make([]models.Contact, 0, len(rows))
	for i := range rows {
		contacts = append(contacts, ToContact(&rows[i]))
	}
	return contacts
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}
