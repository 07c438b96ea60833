package recon

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CorrectionEntry is one vetted misattributed-identity correction: child
// records filed under wrongPatient on the given day belong to correctPatient.
// The table is authoritative human input; the engine never derives entries.
type CorrectionEntry struct {
	WrongPatientID   uuid.UUID `json:"wrong_patient_id"`
	CorrectPatientID uuid.UUID `json:"correct_patient_id"`
	Date             time.Time `json:"-"`
	Rationale        string    `json:"rationale"`
}

const mappingSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["wrong_patient_id", "correct_patient_id", "date"],
		"properties": {
			"wrong_patient_id": {"type": "string"},
			"correct_patient_id": {"type": "string"},
			"date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
			"rationale": {"type": "string"}
		}
	}
}`

var compiledMappingSchema = jsonschema.MustCompileString("mapping-schema.json", mappingSchema)

type rawCorrectionEntry struct {
	WrongPatientID   string `json:"wrong_patient_id"`
	CorrectPatientID string `json:"correct_patient_id"`
	Date             string `json:"date"`
	Rationale        string `json:"rationale"`
}

// LoadCorrectionMapping reads and validates a correction-mapping JSON file.
// The file must be an array of {wrong_patient_id, correct_patient_id, date,
// rationale} objects. A file that is not valid JSON or fails the schema is
// rejected outright as MalformedInputError; entries with an unparseable uuid
// or date are skipped, each with a recorded reason, and the rest of the
// table still runs.
func LoadCorrectionMapping(path string) ([]CorrectionEntry, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &MalformedInputError{Detail: fmt.Sprintf("read mapping file %s", path), Err: err}
	}
	return ParseCorrectionMapping(data)
}

// ParseCorrectionMapping validates raw JSON against the mapping schema and
// decodes it into typed entries. The second return value lists the reasons
// for any skipped entries.
func ParseCorrectionMapping(data []byte) ([]CorrectionEntry, []string, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, nil, &MalformedInputError{Detail: "mapping file is not valid JSON", Err: err}
	}
	if err := compiledMappingSchema.Validate(v); err != nil {
		return nil, nil, &MalformedInputError{Detail: "mapping file does not match schema", Err: err}
	}

	var raw []rawCorrectionEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, &MalformedInputError{Detail: "decode mapping entries", Err: err}
	}

	var skipped []string
	entries := make([]CorrectionEntry, 0, len(raw))
	for i, r := range raw {
		wrong, err := uuid.Parse(strings.TrimSpace(r.WrongPatientID))
		if err != nil {
			skipped = append(skipped, (&MalformedInputError{Detail: fmt.Sprintf("entry %d: wrong_patient_id %q", i, r.WrongPatientID), Err: err}).Error())
			continue
		}
		correct, err := uuid.Parse(strings.TrimSpace(r.CorrectPatientID))
		if err != nil {
			skipped = append(skipped, (&MalformedInputError{Detail: fmt.Sprintf("entry %d: correct_patient_id %q", i, r.CorrectPatientID), Err: err}).Error())
			continue
		}
		if wrong == correct {
			skipped = append(skipped, (&MalformedInputError{Detail: fmt.Sprintf("entry %d: wrong and correct patient are identical", i)}).Error())
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", r.Date, time.UTC)
		if err != nil {
			skipped = append(skipped, (&MalformedInputError{Detail: fmt.Sprintf("entry %d: date %q", i, r.Date), Err: err}).Error())
			continue
		}
		entries = append(entries, CorrectionEntry{
			WrongPatientID:   wrong,
			CorrectPatientID: correct,
			Date:             day,
			Rationale:        r.Rationale,
		})
	}
	return entries, skipped, nil
}
