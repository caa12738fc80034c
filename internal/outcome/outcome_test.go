package outcome

import (
	"errors"
	"strings"
	"testing"
)

func TestResult(t *testing.T) {
	present := Of("a.jar")
	if !present.Present || present.Degraded() {
		t.Errorf("Of() = %+v, want present and not degraded", present)
	}

	absent := Absent[string]("no sources", nil)
	if absent.Present || !absent.Degraded() {
		t.Errorf("Absent() = %+v, want absent and degraded", absent)
	}
	if got := absent.OrElse("fallback"); got != "fallback" {
		t.Errorf("OrElse() = %q, want fallback", got)
	}

	fb := Fallback("orig.aar", "extraction failed", errors.New("zip: not a valid zip file"))
	if !fb.Present || !fb.Degraded() {
		t.Errorf("Fallback() = %+v, want present and degraded", fb)
	}
	if got := fb.OrElse("x"); got != "orig.aar" {
		t.Errorf("OrElse() = %q, want orig.aar", got)
	}
}

func TestReport(t *testing.T) {
	var r Report

	Record(&r, StageSources, "Gradle: a:b:1", Absent[string]("not found", nil))
	Record(&r, StageExtract, "b.aar", Of("b.jar"))
	r.Add(StageResolve, ":app/debugCompileClasspath", "resolution failed", errors.New("boom"))

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	counts := r.ByStage()
	if counts[StageSources] != 1 || counts[StageResolve] != 1 {
		t.Errorf("ByStage() = %v", counts)
	}
	stages := r.Stages()
	if len(stages) != 2 || stages[0] != StageResolve || stages[1] != StageSources {
		t.Errorf("Stages() = %v, want [resolve sources]", stages)
	}

	items := r.Items()
	if !strings.Contains(items[1].String(), "boom") {
		t.Errorf("String() = %q, want to contain cause", items[1].String())
	}
}

func TestNotFoundIsNotRecorded(t *testing.T) {
	var r Report

	res := Record(&r, StageSources, "Gradle: a:b:1", NotFound[string]("no sources archive found"))
	if res.Present || res.Degraded() {
		t.Errorf("NotFound() = %+v, want absent and not degraded", res)
	}
	if res.Reason == "" {
		t.Error("NotFound() should keep its reason")
	}
	if got := res.OrElse(""); got != "" {
		t.Errorf("OrElse() = %q, want empty", got)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0: %v", r.Len(), r.Items())
	}
}

func TestRecordNilReport(t *testing.T) {
	res := Record[string](nil, StageSDK, "sdk", Absent[string]("missing", nil))
	if res.Present {
		t.Error("Record should return the result unchanged")
	}
}
