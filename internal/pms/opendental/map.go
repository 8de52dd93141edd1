package opendental

import (
	"strings"
	"time"

	"github.com/dentalray/pmsbridge/internal/schema"
)

// birthdateLayouts are the date formats OpenDental has been seen to
// emit for Birthdate, tried in order.
var birthdateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"1/2/2006",
}

// toPatient maps an OpenDental patient DTO to the domain record.
func (d *patientDTO) toPatient() *schema.Patient {
	return &schema.Patient{
		ID:          d.PatNum,
		FirstName:   d.FName,
		LastName:    d.LName,
		Phone:       bestPhone(d.HmPhone, d.WirelessPhone, d.WkPhone),
		Email:       d.Email,
		Address:     joinAddress(d.Address, d.Address2),
		City:        d.City,
		State:       d.State,
		ZipCode:     d.Zip,
		DateOfBirth: parseBirthdate(d.Birthdate),
		ReportReady: false,
	}
}

// bestPhone picks the first non-empty phone: home, wireless, work.
func bestPhone(home, wireless, work string) string {
	for _, p := range []string{home, wireless, work} {
		if p != "" {
			return p
		}
	}
	return ""
}

// joinAddress combines the two address lines, skipping empties.
func joinAddress(line1, line2 string) string {
	var parts []string
	for _, l := range []string{line1, line2} {
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, ", ")
}

// parseBirthdate tries each known layout; an unparseable date yields
// the zero time rather than failing the whole patient.
func parseBirthdate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// toInsurance maps an OpenDental insurance DTO to the generic billing
// shape consumed by the store.
func (d *insuranceDTO) toInsurance() *schema.Insurance {
	carrier := d.CarrierName
	if carrier == "" {
		carrier = "Unknown Carrier"
	}

	policy := d.SubscriberID
	if policy == "" {
		policy = d.PatID
	}

	policyholder := d.Subscriber
	if policyholder == "" {
		policyholder = "Self"
	}

	return &schema.Insurance{
		PatientID:        d.PatNum,
		CarrierName:      carrier,
		PolicyNumber:     policy,
		GroupNumber:      d.GroupNum,
		PolicyholderName: policyholder,
		Relationship:     mapRelationship(d.Relationship),
		Priority:         mapPriority(d.Ordinal),
		IsActive:         !strings.EqualFold(d.IsPending, "true"),
	}
}

// mapRelationship normalizes OpenDental's free-text relationship to
// the closed set used for billing.
func mapRelationship(relationship string) string {
	if relationship == "" {
		return schema.RelationshipSelf
	}

	lower := strings.ToLower(relationship)
	switch {
	case strings.Contains(lower, "self"):
		return schema.RelationshipSelf
	case strings.Contains(lower, "spouse"):
		return schema.RelationshipSpouse
	case strings.Contains(lower, "child"), strings.Contains(lower, "dependent"):
		return schema.RelationshipChild
	}
	return schema.RelationshipOther
}

// mapPriority converts the coverage ordinal. Unknown ordinals default
// to Primary, matching how the PMS treats them.
func mapPriority(ordinal int) string {
	if ordinal == 2 {
		return schema.PrioritySecondary
	}
	return schema.PriorityPrimary
}
