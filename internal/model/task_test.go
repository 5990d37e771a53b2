package model

import "testing"

func TestTaskPatchColumns(t *testing.T) {
	p := &TaskPatch{}
	if !p.Empty() {
		t.Fatalf("expected empty patch")
	}
	title, done, mins := "Write report", true, 30
	p = &TaskPatch{Title: &title, Completed: &done, EstimatedMinutes: &mins}
	cols := p.Columns()
	if len(cols) != 3 {
		t.Fatalf("expected 3 columns, got %v", cols)
	}
	if cols["title"] != "Write report" || cols["completed"] != true || cols["estimated_minutes"] != 30 {
		t.Fatalf("unexpected columns %v", cols)
	}
	if _, ok := cols["description"]; ok {
		t.Fatalf("nil description must not be written")
	}
}

func TestTaskPatchDiff(t *testing.T) {
	mins := 30
	task := &Task{Title: "Write report", Description: "Q3", Category: "Work", EstimatedMinutes: &mins}

	same := "Q3"
	p := &TaskPatch{Description: &same}
	if d := p.Diff(task); len(d) != 0 {
		t.Fatalf("identical description should produce no diff, got %v", d)
	}

	other, longer := "Q4 numbers", 45
	p = &TaskPatch{Description: &other, EstimatedMinutes: &longer}
	d := p.Diff(task)
	if len(d) != 2 || d["description"] != "Q4 numbers" || d["estimated_minutes"] != 45 {
		t.Fatalf("unexpected diff %v", d)
	}

	p.Apply(task)
	if task.Description != "Q4 numbers" || *task.EstimatedMinutes != 45 {
		t.Fatalf("apply failed: %+v", task)
	}
	if mins != 30 {
		t.Fatalf("apply must not alias the patch value")
	}
}

func TestTaskPatchDiffFillsMissingMinutes(t *testing.T) {
	task := &Task{Title: "x"}
	m := 10
	d := (&TaskPatch{EstimatedMinutes: &m}).Diff(task)
	if d["estimated_minutes"] != 10 {
		t.Fatalf("expected minutes diff when previously absent, got %v", d)
	}
}
