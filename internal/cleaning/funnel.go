package cleaning

import (
	"gonum.org/v1/gonum/floats"

	"surveydeck/domain/survey"
	"surveydeck/internal/errors"
)

// Funnel column suffixes. A source prefix ("门诊", "病房", "门诊+病房")
// completes the column name, e.g. "门诊CKD患者数".
const (
	Patients     = "患者数"
	CKDShare     = "患者中CKD占比"
	NDShare      = "CKD患者中ND占比"
	Stage35Share = "ND-CKD患者中3-5期占比"
	Stage12Share = "ND-CKD患者中1-2期占比"

	CKDPatients     = "CKD患者数"
	NDPatients      = "ND-CKD患者数"
	Stage12Patients = "ND-CKD1-2期患者数"
	Stage35Patients = "ND-CKD3-5期患者数"
)

// CombinedSource names the source that adds up two base sources.
func CombinedSource(a, b string) string {
	return a + "+" + b
}

// funnel derives the patient counts down the CKD funnel for the first two
// sources and their combination. Any missing input leaves the derived cell
// missing, and so does a division by zero.
func (c *Cleaner) funnel(t *survey.Table, rep *Report) (*survey.Table, error) {
	if !c.def.Clean.Funnel {
		return t, nil
	}
	if len(c.def.Sources) < 2 {
		return nil, errors.ConfigInvalid("funnel derivation needs two sources")
	}
	a, b := c.def.Sources[0], c.def.Sources[1]
	combined := CombinedSource(a, b)

	var required []string
	for _, s := range []string{a, b} {
		required = append(required, s+Patients, s+CKDShare, s+NDShare, s+Stage35Share)
	}
	if err := missingColumns(t, required...); err != nil {
		return nil, err
	}

	col := func(name string) []float64 {
		nums, _ := t.Numbers(name)
		return nums
	}
	set := func(name string, nums []float64) error {
		rep.Derived = append(rep.Derived, name)
		if err := t.SetNumbers(name, nums); err != nil {
			return errors.InternalError(err.Error())
		}
		return nil
	}
	n := t.Len()

	// per source: patients -> CKD -> ND-CKD -> stage 1-2 / stage 3-5
	base := func(s string) error {
		ckd := floats.MulTo(make([]float64, n), col(s+Patients), col(s+CKDShare))
		if err := set(s+CKDPatients, ckd); err != nil {
			return err
		}
		nd := floats.MulTo(make([]float64, n), ckd, col(s+NDShare))
		if err := set(s+NDPatients, nd); err != nil {
			return err
		}
		share35 := col(s + Stage35Share)
		share12 := make([]float64, n)
		copy(share12, share35)
		floats.Scale(-1, share12)
		floats.AddConst(1, share12)
		if err := set(s+Stage12Patients, floats.MulTo(make([]float64, n), nd, share12)); err != nil {
			return err
		}
		return set(s+Stage35Patients, floats.MulTo(make([]float64, n), nd, share35))
	}
	if err := base(a); err != nil {
		return nil, err
	}
	if err := base(b); err != nil {
		return nil, err
	}

	sum := func(suffix string) []float64 {
		return floats.AddTo(make([]float64, n), col(a+suffix), col(b+suffix))
	}
	ratio := func(num, den []float64) []float64 {
		return floats.DivTo(make([]float64, n), num, den)
	}

	patients := sum(Patients)
	ckd := sum(CKDPatients)
	nd := sum(NDPatients)
	stage12 := sum(Stage12Patients)
	stage35 := sum(Stage35Patients)
	derived := []struct {
		name string
		nums []float64
	}{
		{combined + Patients, patients},
		{combined + CKDPatients, ckd},
		{combined + CKDShare, ratio(ckd, patients)},
		{combined + NDPatients, nd},
		{combined + NDShare, ratio(nd, ckd)},
		{combined + Stage12Patients, stage12},
		{combined + Stage12Share, ratio(stage12, nd)},
		{combined + Stage35Patients, stage35},
		{combined + Stage35Share, ratio(stage35, nd)},
	}
	for _, d := range derived {
		if err := set(d.name, d.nums); err != nil {
			return nil, err
		}
	}
	return t, nil
}
