package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jonathan/application-agent/internal/state"
)

// writer returns a stage that writes doc into slot (a Document slot) and
// records one progress message.
func writer(name string, slot state.Slot, doc state.Document, reads ...state.Slot) *Func {
	return NewStage(name, reads, []state.Slot{slot}, func(ctx context.Context, st state.State) state.State {
		setDocument(&st, slot, doc.Clone())
		st.Record(name, name+" done")
		return st
	})
}

func slowWriter(name string, slot state.Slot, doc state.Document, delay time.Duration) *Func {
	return NewStage(name, nil, []state.Slot{slot}, func(ctx context.Context, st state.State) state.State {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
		setDocument(&st, slot, doc.Clone())
		st.Record(name, name+" done")
		return st
	})
}

func failing(name string, slot state.Slot) *Func {
	return NewStage(name, nil, []state.Slot{slot}, func(ctx context.Context, st state.State) state.State {
		st.Fail(name, errors.New("upstream unavailable"))
		return st
	})
}

func counting(name string, slot state.Slot, calls *atomic.Int32, reads ...state.Slot) *Func {
	return NewStage(name, reads, []state.Slot{slot}, func(ctx context.Context, st state.State) state.State {
		n := calls.Add(1)
		setDocument(&st, slot, state.Document{"attempt": float64(n)})
		st.Record(name, name+" done")
		return st
	})
}

func setDocument(st *state.State, slot state.Slot, doc state.Document) {
	switch slot {
	case state.SlotJobAnalysis:
		st.JobAnalysis = doc
	case state.SlotCompanyResearch:
		st.CompanyResearch = doc
	case state.SlotDBProfile:
		st.DBProfile = doc
	case state.SlotResumeAnalysis:
		st.ResumeAnalysis = doc
	case state.SlotWritingStyle:
		st.WritingStyle = doc
	case state.SlotParsedResume:
		st.ParsedResume = doc
	case state.SlotATSFeedback:
		st.ATSFeedback = doc
	case state.SlotQualityFeedback:
		st.QualityFeedback = doc
	case state.SlotQAResults:
		st.QAResults = doc
	default:
		panic("setDocument: unsupported slot " + string(slot))
	}
}

func newState() state.State {
	return state.New("run-test", state.Inputs{
		JobDescription: "Senior Backend Engineer, must know Go and Kubernetes",
		CompanyName:    "Acme Corp",
		DocumentType:   state.CoverLetter,
	})
}
