package home

import "strings"

// NormalizeContacts trims input, assigns missing ids and leaves exactly one
// primary contact: the first marked one, else the first contact.
func NormalizeContacts(in []Contact) []Contact {
	out := make([]Contact, 0, len(in))
	primary := -1
	for _, c := range in {
		c.Company = strings.TrimSpace(c.Company)
		c.FullName = strings.TrimSpace(c.FullName)
		c.Email = strings.ToLower(strings.TrimSpace(c.Email))
		c.Phone = strings.TrimSpace(c.Phone)
		if c.ID == "" {
			c.ID = newID()
		}
		if c.IsPrimary && primary < 0 {
			primary = len(out)
		}
		c.IsPrimary = false
		out = append(out, c)
	}
	if len(out) > 0 {
		if primary < 0 {
			primary = 0
		}
		out[primary].IsPrimary = true
	}
	return out
}

func PrimaryContact(contacts []Contact) (Contact, bool) {
	for _, c := range contacts {
		if c.IsPrimary {
			return c, true
		}
	}
	return Contact{}, false
}

// VendorFromContact keeps the legacy vendor block in step with the primary contact.
func VendorFromContact(c Contact) Vendor {
	name := c.Company
	if name == "" {
		name = c.FullName
	}
	return Vendor{
		Name:        name,
		ContactName: c.FullName,
		Phone:       c.Phone,
		Email:       c.Email,
	}
}
