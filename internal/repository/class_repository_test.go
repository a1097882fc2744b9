package repository

import (
    "testing"

    "github.com/hobbyloop/class-attendance/internal/model"
)

func TestParseMethodsCSV(t *testing.T) {
    got := parseMethodsCSV(" qr_code , instructor_confirmation ,bogus,")
    want := []model.Method{model.MethodQRCode, model.MethodInstructorConfirmed}
    if len(got) != len(want) {
        t.Fatalf("parsed %v, want %v", got, want)
    }
    for i := range want {
        if got[i] != want[i] {
            t.Fatalf("parsed %v, want %v", got, want)
        }
    }
    if out := parseMethodsCSV(""); len(out) != 0 {
        t.Fatalf("empty csv parsed to %v", out)
    }
}
