// Package csvplans reads a population from a CSV file with one day element
// per row:
//
//	person_id,kind,label,start,end,distance
//	p1,activity,home,00:00:00,07:00:00,
//	p1,leg,car,07:00:00,08:00:00,1000
//
// label is the activity category for activities and the mode for legs.
// Rows of one person must be contiguous and in day order.
package csvplans

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"planscore/internal/integrations"
	"planscore/internal/model"
)

var header = []string{"person_id", "kind", "label", "start", "end", "distance"}

type Source struct {
	Path string
}

var _ integrations.PlanSource = Source{}

func (s Source) Name() string { return "csv" }

func (s Source) FetchPlans(ctx context.Context) ([]model.PlanIn, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Read(ctx, f)
}

// Read parses plans from r. A header row is optional.
func Read(ctx context.Context, r io.Reader) ([]model.PlanIn, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true

	var (
		plans []model.PlanIn
		index = map[string]int{}
		line  = 0
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(rec[0], header[0]) {
			continue
		}
		el, err := element(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		person := strings.TrimSpace(rec[0])
		if person == "" {
			return nil, fmt.Errorf("line %d: empty person_id", line)
		}
		i, seen := index[person]
		switch {
		case !seen:
			index[person] = len(plans)
			plans = append(plans, model.PlanIn{PersonID: person})
			i = len(plans) - 1
		case i != len(plans)-1:
			return nil, fmt.Errorf("line %d: rows for %q are not contiguous", line, person)
		}
		plans[i].Day = append(plans[i].Day, el)
	}
	return plans, nil
}

func element(rec []string) (model.ElementIn, error) {
	el := model.ElementIn{
		Kind:  strings.ToLower(strings.TrimSpace(rec[1])),
		Start: strings.TrimSpace(rec[3]),
		End:   strings.TrimSpace(rec[4]),
	}
	label := strings.TrimSpace(rec[2])
	switch el.Kind {
	case model.KindActivity:
		el.Act = label
	case model.KindLeg:
		el.Mode = label
		if d := strings.TrimSpace(rec[5]); d != "" {
			v, err := strconv.ParseFloat(d, 64)
			if err != nil {
				return el, fmt.Errorf("distance %q: %w", d, err)
			}
			el.Distance = v
		}
	default:
		return el, fmt.Errorf("unknown kind %q", rec[1])
	}
	return el, nil
}
