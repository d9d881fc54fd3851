package models

// Extent is implemented by every level of the resolved model.
// Start comes from the first child and end from the last.
type Extent interface {
	StartMS() (uint64, error)
	EndMS() (uint64, error)
}

// Duration returns end minus start for any level of the model.
func Duration(e Extent) (uint64, error) {
	start, err := e.StartMS()
	if err != nil {
		return 0, err
	}
	end, err := e.EndMS()
	if err != nil {
		return 0, err
	}
	if end < start {
		return 0, &Error{Kind: KindUnderflow, Field: "extent"}
	}
	return end - start, nil
}

func (m *Manifest) StartMS() (uint64, error) {
	if len(m.Periods) == 0 {
		return 0, &Error{Kind: KindEmpty, Field: "periods"}
	}
	return m.Periods[0].StartMS()
}

func (m *Manifest) EndMS() (uint64, error) {
	if len(m.Periods) == 0 {
		return 0, &Error{Kind: KindEmpty, Field: "periods"}
	}
	return m.Periods[len(m.Periods)-1].EndMS()
}

func (p *Period) StartMS() (uint64, error) {
	if len(p.AdaptationSets) == 0 {
		return 0, Scope{Period: p.ID}.Fail(KindEmpty, "adaptation sets", nil)
	}
	start, err := p.AdaptationSets[0].StartMS()
	if err != nil {
		return 0, Scope{Period: p.ID}.Locate(err)
	}
	return start, nil
}

func (p *Period) EndMS() (uint64, error) {
	if len(p.AdaptationSets) == 0 {
		return 0, Scope{Period: p.ID}.Fail(KindEmpty, "adaptation sets", nil)
	}
	end, err := p.AdaptationSets[len(p.AdaptationSets)-1].EndMS()
	if err != nil {
		return 0, Scope{Period: p.ID}.Locate(err)
	}
	return end, nil
}

func (a *AdaptationSet) StartMS() (uint64, error) {
	if len(a.Representations) == 0 {
		return 0, Scope{AdaptationSet: a.ID}.Fail(KindEmpty, "representations", nil)
	}
	start, err := a.Representations[0].StartMS()
	if err != nil {
		return 0, Scope{AdaptationSet: a.ID}.Locate(err)
	}
	return start, nil
}

func (a *AdaptationSet) EndMS() (uint64, error) {
	if len(a.Representations) == 0 {
		return 0, Scope{AdaptationSet: a.ID}.Fail(KindEmpty, "representations", nil)
	}
	end, err := a.Representations[len(a.Representations)-1].EndMS()
	if err != nil {
		return 0, Scope{AdaptationSet: a.ID}.Locate(err)
	}
	return end, nil
}

func (r *Representation) StartMS() (uint64, error) {
	if r.Segments == nil {
		return 0, Scope{Representation: r.ID}.Fail(KindMissing, "segments", nil)
	}
	start, err := r.Segments.StartMS()
	if err != nil {
		return 0, Scope{Representation: r.ID}.Locate(err)
	}
	return start, nil
}

func (r *Representation) EndMS() (uint64, error) {
	if r.Segments == nil {
		return 0, Scope{Representation: r.ID}.Fail(KindMissing, "segments", nil)
	}
	end, err := r.Segments.EndMS()
	if err != nil {
		return 0, Scope{Representation: r.ID}.Locate(err)
	}
	return end, nil
}

func (st *SegmentTemplate) StartMS() (uint64, error) {
	return st.Timeline.StartMS()
}

func (st *SegmentTemplate) EndMS() (uint64, error) {
	return st.Timeline.EndMS()
}

func (SegmentList) StartMS() (uint64, error) {
	return 0, &Error{Kind: KindNotImplemented, Field: "SegmentList"}
}

func (SegmentList) EndMS() (uint64, error) {
	return 0, &Error{Kind: KindNotImplemented, Field: "SegmentList"}
}

func (t SegmentTimeline) StartMS() (uint64, error) {
	if len(t.Segments) == 0 {
		return 0, &Error{Kind: KindEmpty, Field: "SegmentTimeline"}
	}
	return t.Segments[0].StartMS, nil
}

func (t SegmentTimeline) EndMS() (uint64, error) {
	if len(t.Segments) == 0 {
		return 0, &Error{Kind: KindEmpty, Field: "SegmentTimeline"}
	}
	return t.Segments[len(t.Segments)-1].EndMS, nil
}
