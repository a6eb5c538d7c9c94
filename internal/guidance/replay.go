package guidance

import (
	"fmt"

	"github.com/GoSim-25-26J-441/clicksim/pkg/models"
)

// replay advances every label's history by one stored click. A label with k
// clicks receives the first min(k+1, N) clicks of its record of N clicks.
func (s *Sampler) replay(req *Request, res Result) error {
	record, err := s.clicks.LoadClicks(req.SampleID)
	if err != nil {
		return fmt.Errorf("failed to load clicks for %s: %w", req.SampleID, err)
	}
	shape := req.Label.Shape
	for _, name := range s.labels.Names() {
		stored, ok := record[name]
		if !ok {
			return fmt.Errorf("sample %s has no clicks for label %s: %w", req.SampleID, name, models.ErrMalformedRecord)
		}
		pts, err := Prefix(stored, req.Guidance.Len(name)+1, shape)
		if err != nil {
			return fmt.Errorf("sample %s label %s: %w", req.SampleID, name, err)
		}
		before := req.Guidance.Len(name)
		if err := req.Guidance.Extend(name, pts); err != nil {
			return err
		}
		if len(pts) > before {
			res[name] = pts[len(pts)-1]
		}
	}
	return nil
}

// Prefix converts the first k stored coordinates into guidance points.
// Coordinates of the wrong length or outside shape make the record malformed.
func Prefix(stored [][]int, k int, shape models.Shape) ([]models.Point, error) {
	k = min(k, len(stored))
	out := make([]models.Point, 0, k)
	for i := 0; i < k; i++ {
		p := models.NewPoint(stored[i])
		if err := p.ValidFor(shape.Dims()); err != nil {
			return nil, fmt.Errorf("click %d: %w: %w", i, models.ErrMalformedRecord, err)
		}
		if !shape.Contains(p.Spatial()) {
			return nil, fmt.Errorf("click %d at %v outside %v: %w", i, stored[i], shape, models.ErrMalformedRecord)
		}
		out = append(out, p)
	}
	return out, nil
}
