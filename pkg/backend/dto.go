package backend

import (
	"strconv"
	"strings"
	"time"

	"github.com/mananjary-mi/family-portal/pkg/models"
)

type loginRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	UserType *string `json:"user_type,omitempty"`
}

// loginResponse mirrors the backend token payload:
// {"access_token", "token_type", "user_type", "user_data": {...}}.
type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	UserType    string       `json:"user_type"`
	UserData    loginUserDTO `json:"user_data"`
}

type loginUserDTO struct {
	ID         int64  `json:"id"`
	Nom        string `json:"nom"`
	Prenom     string `json:"prenom"`
	Email      string `json:"email"`
	IDTragnobe *int64 `json:"id_tragnobe"`
	Statut     string `json:"statut"`
}

func (r loginResponse) toLoginResult() *models.LoginResult {
	return &models.LoginResult{
		AccessToken: r.AccessToken,
		Account: models.Account{
			ID:         r.UserData.ID,
			UserType:   r.UserType,
			Email:      r.UserData.Email,
			FirstName:  r.UserData.Prenom,
			LastName:   r.UserData.Nom,
			TragnobeID: r.UserData.IDTragnobe,
			Status:     r.UserData.Statut,
		},
	}
}

// userDTO is one member row. Older deployments send date_naissance as an
// ISO timestamp, newer ones send annee_naissance directly.
type userDTO struct {
	ID             int64   `json:"id"`
	Nom            string  `json:"nom"`
	Prenom         string  `json:"prenom"`
	Genre          string  `json:"genre"`
	AnneeNaissance *int    `json:"annee_naissance"`
	DateNaissance  *string `json:"date_naissance"`
	Photo          *string `json:"photo"`
}

func (u userDTO) toPerson() models.Person {
	p := models.Person{
		ID:        u.ID,
		FirstName: u.Prenom,
		LastName:  u.Nom,
		Gender:    normalizeGender(u.Genre),
		Photo:     u.Photo,
	}
	switch {
	case u.AnneeNaissance != nil:
		year := *u.AnneeNaissance
		p.BirthYear = &year
	case u.DateNaissance != nil:
		p.BirthYear = yearOf(*u.DateNaissance)
	}
	return p
}

// normalizeGender maps the backend's values ("H", "homme", "M", "F", "femme") to H or F.
func normalizeGender(g string) string {
	switch strings.ToUpper(strings.TrimSpace(g)) {
	case "H", "M", "HOMME", "MASCULIN":
		return models.GenderMale
	case "F", "FEMME", "FEMININ", "FÉMININ":
		return models.GenderFemale
	default:
		return g
	}
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// yearOf extracts the year of a backend date, or nil if it cannot be parsed.
func yearOf(s string) *int {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			year := t.Year()
			return &year
		}
	}
	if len(s) >= 4 {
		if year, err := strconv.Atoi(s[:4]); err == nil {
			return &year
		}
	}
	return nil
}

type relationDTO struct {
	ID           int64  `json:"id"`
	IDUser1      int64  `json:"id_user1"`
	IDUser2      int64  `json:"id_user2"`
	TypeRelation string `json:"type_relation"`
}

// toRelation keeps unknown kinds verbatim; the graph builder reports them.
func (r relationDTO) toRelation() models.Relation {
	kind := models.RelationKind(r.TypeRelation)
	if parsed, err := models.ParseRelationKind(r.TypeRelation); err == nil {
		kind = parsed
	}
	return models.Relation{
		ID:      r.ID,
		PersonA: r.IDUser1,
		PersonB: r.IDUser2,
		Kind:    kind,
	}
}
