package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/coordinates"
)

// ParseError reports a malformed catalog line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NGC 2000.0 record layout (1-based, inclusive columns):
//
//	 1- 5  designation, "I" prefix for IC objects
//	 7- 9  object type code
//	11-12  RA hours
//	14-17  RA minutes
//	20     declination sign
//	21-22  declination degrees
//	24-25  declination minutes
//	30-32  constellation
//	33     size limit flag
//	34-38  largest dimension, arcminutes
//	41-44  magnitude
//	47-96  description
const ngcRecordWidth = 96

// field returns the trimmed 1-based inclusive column range of a padded line.
func field(line string, from, to int) string {
	return strings.TrimSpace(line[from-1 : to])
}

func optionalFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// NormalizeDesignation turns "ngc 224", "NGC224", " 224" and "I1613" into
// the canonical "NGC 224" / "IC 1613" form.
func NormalizeDesignation(s string) string {
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))
	switch {
	case strings.HasPrefix(s, "NGC"):
		return "NGC " + strings.TrimLeft(s[3:], "0")
	case strings.HasPrefix(s, "IC"):
		return "IC " + strings.TrimLeft(s[2:], "0")
	case strings.HasPrefix(s, "I"):
		return "IC " + strings.TrimLeft(s[1:], "0")
	case s != "" && s[0] >= '0' && s[0] <= '9':
		return "NGC " + strings.TrimLeft(s, "0")
	}
	return s
}

// ParseNGCLine parses a single NGC 2000.0 record.
func ParseNGCLine(line string) (bodies.FixedBody, error) {
	if len(strings.TrimSpace(line)) == 0 {
		return bodies.FixedBody{}, fmt.Errorf("empty record")
	}
	if len(line) < ngcRecordWidth {
		line += strings.Repeat(" ", ngcRecordWidth-len(line))
	}

	designation := field(line, 1, 5)
	if designation == "" {
		return bodies.FixedBody{}, fmt.Errorf("missing designation")
	}

	classification, ok := bodies.ParseClassification(field(line, 7, 9))
	if !ok {
		return bodies.FixedBody{}, fmt.Errorf("unknown object type %q", field(line, 7, 9))
	}

	raHours, err := strconv.Atoi(field(line, 11, 12))
	if err != nil {
		return bodies.FixedBody{}, fmt.Errorf("invalid RA hours: %w", err)
	}
	raMinutes, err := strconv.ParseFloat(field(line, 14, 17), 64)
	if err != nil {
		return bodies.FixedBody{}, fmt.Errorf("invalid RA minutes: %w", err)
	}

	decDegrees, err := strconv.Atoi(field(line, 21, 22))
	if err != nil {
		return bodies.FixedBody{}, fmt.Errorf("invalid declination degrees: %w", err)
	}
	decMinutes, err := strconv.Atoi(field(line, 24, 25))
	if err != nil {
		return bodies.FixedBody{}, fmt.Errorf("invalid declination minutes: %w", err)
	}
	declination := float64(decDegrees) + float64(decMinutes)/60.0
	if field(line, 20, 20) == "-" {
		declination = -declination
	}

	size, err := optionalFloat(field(line, 34, 38))
	if err != nil {
		return bodies.FixedBody{}, fmt.Errorf("invalid size: %w", err)
	}
	magnitude, err := optionalFloat(field(line, 41, 44))
	if err != nil {
		return bodies.FixedBody{}, fmt.Errorf("invalid magnitude: %w", err)
	}

	return bodies.FixedBody{
		Designation:    NormalizeDesignation(designation),
		Description:    field(line, 47, ngcRecordWidth),
		Constellation:  field(line, 30, 32),
		Dimension:      size,
		Magnitude:      magnitude,
		Classification: classification,
		Position: coordinates.Equatorial{
			Radius:         1,
			RightAscension: (float64(raHours) + raMinutes/60.0) * 15.0,
			Declination:    declination,
		},
	}, nil
}

// ReadNGC parses an NGC 2000.0 data stream. Blank lines are skipped; the
// first malformed record aborts the read with a *ParseError.
func ReadNGC(r io.Reader) ([]bodies.FixedBody, error) {
	var objects []bodies.FixedBody

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		body, err := ParseNGCLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Err: err}
		}
		objects = append(objects, body)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read NGC catalog: %w", err)
	}

	return objects, nil
}

// CommonName links a popular name to a catalog designation.
type CommonName struct {
	Name        string
	Designation string
	Comment     string
}

// ReadNames parses the companion common-names table:
//
//	 1-35  common name
//	37-41  designation, same format as the NGC record
//	43-    comment
//
// Lines without a designation (for example Messier-only objects) are
// skipped.
func ReadNames(r io.Reader) ([]CommonName, error) {
	var names []CommonName

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) < 41 {
			line += strings.Repeat(" ", 41-len(line))
		}

		name := field(line, 1, 35)
		if name == "" {
			return nil, &ParseError{Line: lineNo, Err: fmt.Errorf("missing name")}
		}
		designation := field(line, 37, 41)
		if designation == "" {
			continue
		}

		comment := ""
		if len(line) > 42 {
			comment = strings.TrimSpace(line[42:])
		}

		names = append(names, CommonName{
			Name:        name,
			Designation: NormalizeDesignation(designation),
			Comment:     comment,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read names table: %w", err)
	}

	return names, nil
}

// ApplyNames back-fills FixedBody.Name from the names table. When several
// names point at one object the first one wins. It returns the number of
// objects that received a name.
func ApplyNames(objects []bodies.FixedBody, names []CommonName) int {
	byDesignation := make(map[string]string, len(names))
	for _, n := range names {
		if _, exists := byDesignation[n.Designation]; !exists {
			byDesignation[n.Designation] = n.Name
		}
	}

	named := 0
	for i := range objects {
		if name, ok := byDesignation[objects[i].Designation]; ok && objects[i].Name == "" {
			objects[i].Name = name
			named++
		}
	}
	return named
}
