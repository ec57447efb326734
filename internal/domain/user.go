package domain

import "strings"

// User is either a *Customer or a *Translator
type User interface {
	UserID() int64
	Role() Role
	ContactInfo() Contact
	NotificationPrefs() Preferences
}

type Contact struct {
	Name   string `db:"name" json:"name"`
	Email  string `db:"email" json:"email"`
	Mobile string `db:"mobile" json:"mobile"`
}

// Preferences are the per-user notification opt-outs
type Preferences struct {
	NotGetEmergency    Flag `db:"not_get_emergency" json:"not_get_emergency"`
	NotGetNighttime    Flag `db:"not_get_nighttime" json:"not_get_nighttime"`
	NotGetNotification Flag `db:"not_get_notification" json:"not_get_notification"`
}

type Customer struct {
	ID           int64        `db:"id" json:"id"`
	ConsumerType ConsumerType `db:"consumer_type" json:"consumer_type"`
	CustomerType string       `db:"customer_type" json:"customer_type"`
	City         string       `db:"city" json:"city"`
	Towns        []string     `db:"-" json:"towns,omitempty"`
	Blacklist    []int64      `db:"-" json:"-"`
	Contact
	Preferences
}

func (c *Customer) UserID() int64                  { return c.ID }
func (c *Customer) Role() Role                     { return RoleCustomer }
func (c *Customer) ContactInfo() Contact           { return c.Contact }
func (c *Customer) NotificationPrefs() Preferences { return c.Preferences }

// Blacklisted reports whether the customer refuses the translator.
func (c *Customer) Blacklisted(translatorID int64) bool {
	for _, id := range c.Blacklist {
		if id == translatorID {
			return true
		}
	}
	return false
}

type Translator struct {
	ID        int64           `db:"id" json:"id"`
	Type      TranslatorType  `db:"translator_type" json:"translator_type"`
	Level     TranslatorLevel `db:"translator_level" json:"translator_level"`
	Gender    Gender          `db:"gender" json:"gender"`
	City      string          `db:"city" json:"city"`
	Languages []int64         `db:"-" json:"languages"`
	Towns     []string        `db:"-" json:"towns,omitempty"`
	Contact
	Preferences
}

func (t *Translator) UserID() int64                  { return t.ID }
func (t *Translator) Role() Role                     { return RoleTranslator }
func (t *Translator) ContactInfo() Contact           { return t.Contact }
func (t *Translator) NotificationPrefs() Preferences { return t.Preferences }

func (t *Translator) SpeaksLanguage(languageID int64) bool {
	for _, id := range t.Languages {
		if id == languageID {
			return true
		}
	}
	return false
}

// SharesTown reports whether the translator serves any of the customer's towns.
func (t *Translator) SharesTown(c *Customer) bool {
	towns := c.Towns
	if len(towns) == 0 && c.City != "" {
		towns = []string{c.City}
	}
	for _, mine := range t.Towns {
		for _, theirs := range towns {
			if strings.EqualFold(strings.TrimSpace(mine), strings.TrimSpace(theirs)) {
				return true
			}
		}
	}
	return false
}
