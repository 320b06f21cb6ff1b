package parser

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/me/dfjss/pkg/model"
)

func testParser(opts ...Option) *Parser {
	return New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})), opts...)
}

func testdataPath(rel string) string {
	return filepath.Join("..", "..", "testdata", "instances", rel)
}

func loadTestdata(t *testing.T, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(testdataPath(rel))
	if err != nil {
		t.Fatalf("load testdata %q: %v", rel, err)
	}
	return data
}

func a(m, d int) model.Alternative { return model.Alternative{Machine: m, Duration: d} }

func op(alts ...model.Alternative) model.Operation { return model.Operation{Alternatives: alts} }

// dynamicInstance is the content of testdata/instances/dynamic.*.
func dynamicInstance(name string) *model.Instance {
	return &model.Instance{
		Name:     name,
		Machines: 2,
		Jobs: []model.JobSpec{
			{Operations: []model.Operation{op(a(0, 3), a(1, 5)), op(a(1, 2))}},
			{Operations: []model.Operation{op(a(0, 6)), op(a(0, 1), a(1, 4))}},
			{Operations: []model.Operation{op(a(1, 4))}},
		},
		Events: model.Events{
			Breakdowns:    []model.Breakdown{{Machine: 1, Start: 3, End: 6}},
			Arrivals:      []model.JobArrival{{Time: 5, Operations: []model.Operation{op(a(0, 2), a(1, 3))}}},
			Cancellations: []model.JobCancellation{{Time: 4, Job: 2}},
			ETPC:          []model.ETPCConstraint{{ForeJob: 0, ForeOp: 1, HindJob: 3, HindOp: 0, Lapse: 1}},
		},
	}
}

func TestLoadFile_TextAndDocumentAgree(t *testing.T) {
	p := testParser()
	text, err := p.LoadFile(testdataPath("dynamic.txt"))
	if err != nil {
		t.Fatalf("LoadFile(txt): %v", err)
	}
	if want := dynamicInstance("dynamic.txt"); !reflect.DeepEqual(text, want) {
		t.Errorf("text instance = %+v\nwant %+v", text, want)
	}

	doc, err := p.LoadFile(testdataPath("dynamic.yaml"))
	if err != nil {
		t.Fatalf("LoadFile(yaml): %v", err)
	}
	if want := dynamicInstance("dynamic-doc"); !reflect.DeepEqual(doc, want) {
		t.Errorf("document instance = %+v\nwant %+v", doc, want)
	}
}

func TestLoadFile_JSONWithArrival(t *testing.T) {
	inst, err := testParser().LoadFile(testdataPath("static.json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if inst.Name != "static-json" || inst.Jobs[1].Arrival != 2 {
		t.Errorf("instance = %+v", inst)
	}
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	_, err := testParser().LoadFile(testdataPath("README.md"))
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("LoadFile(README.md) error = %v", err)
	}
}

func TestLoadDir(t *testing.T) {
	insts, err := testParser().LoadDir(testdataPath(""))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	var names []string
	for _, inst := range insts {
		names = append(names, inst.Name)
	}
	want := []string{"dynamic.txt", "dynamic-doc", "mk01-mini.txt", "static-json"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("LoadDir names = %v, want %v", names, want)
	}
}

func TestParseText_OneBasedMachines(t *testing.T) {
	data := []byte("1 2\n1 2 1 4 2 7\nDynamic Events\nMachine Breakdowns\n2 1 3\n")
	inst, err := testParser(WithOneBasedMachines()).Parse(data, FormatText, "one-based")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := inst.Jobs[0].Operations[0].Alternatives; !reflect.DeepEqual(got, []model.Alternative{a(0, 4), a(1, 7)}) {
		t.Errorf("alternatives = %v", got)
	}
	if inst.Events.Breakdowns[0].Machine != 1 {
		t.Errorf("breakdown machine = %d, want 1", inst.Events.Breakdowns[0].Machine)
	}
}

func TestParseText_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "# nothing\n", "missing header"},
		{"short header", "3\n", "job and machine counts"},
		{"job count mismatch", "2 1\n1 1 0 3\n", "declares 2 jobs, found 1"},
		{"truncated job", "1 1\n2 1 0 3\n", "line 2: line ends before"},
		{"trailing values", "1 1\n1 1 0 3 9\n", "trailing"},
		{"not a number", "1 1\n1 1 x 3\n", `invalid integer "x"`},
		{"event before section", "1 1\n1 1 0 3\nDynamic Events\n0 1 2\n", "before any event section"},
		{"bad breakdown", "1 1\n1 1 0 3\nMachine Breakdowns\n0 1\n", "breakdown needs 3 values"},
		{"added job without colon", "1 1\n1 1 0 3\nAdded Jobs\n5 1 1 0 2\n", "<time>: <operations>"},
		{"bad cancellation", "1 1\n1 1 0 3\nCancelled Jobs\n4\n", "cancellation needs 2 values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testParser().ParseText([]byte(tt.input), "bad.txt")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseText error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_ValidatesResult(t *testing.T) {
	_, err := testParser().Parse([]byte("1 1\n1 1 3 4\n"), FormatText, "bad.txt")
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("Parse error = %v, want machine range error", err)
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrValidation {
		t.Errorf("Parse error %v does not wrap a validation APIError", err)
	}
}

func TestParseDocument_UnknownField(t *testing.T) {
	_, err := testParser().ParseDocument([]byte("machines: 1\njobz: []\n"), "typo.yaml")
	if err == nil || !strings.Contains(err.Error(), "jobz") {
		t.Errorf("ParseDocument error = %v, want unknown field", err)
	}
}

func TestWriteText_RoundTrip(t *testing.T) {
	for _, oneBased := range []bool{false, true} {
		var opts []Option
		if oneBased {
			opts = append(opts, WithOneBasedMachines())
		}
		p := testParser(opts...)
		want := dynamicInstance("rt.txt")
		var buf bytes.Buffer
		if err := p.WriteText(&buf, want); err != nil {
			t.Fatalf("WriteText: %v", err)
		}
		got, err := p.Parse(buf.Bytes(), FormatText, "rt.txt")
		if err != nil {
			t.Fatalf("Parse(written):\n%s\n%v", buf.String(), err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("one-based=%v: round trip = %+v, want %+v", oneBased, got, want)
		}
	}
}

func TestWriteText_RejectsLateInitialJob(t *testing.T) {
	inst := dynamicInstance("late")
	inst.Jobs[0].Arrival = 3
	if err := testParser().WriteText(&bytes.Buffer{}, inst); err == nil {
		t.Error("WriteText accepted an initial job with a non-zero arrival")
	}
}

func TestWriteDocument_RoundTrip(t *testing.T) {
	p := testParser()
	want := dynamicInstance("doc")
	var buf bytes.Buffer
	if err := p.WriteDocument(&buf, want); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	got, err := p.Parse(buf.Bytes(), FormatDocument, "ignored")
	if err != nil {
		t.Fatalf("Parse(written):\n%s\n%v", buf.String(), err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}
