package object

import (
	"testing"

	"github.com/sfexlang/sfex/internal/ir"
	"github.com/sfexlang/sfex/internal/rterr"
	"github.com/sfexlang/sfex/internal/value"
)

func personConcept() *ConceptDef {
	return &ConceptDef{
		Name: "Person",
		Fields: []FieldDecl{
			{Name: "Name", Default: value.Str("")},
			{Name: "Age", Default: value.NumberFromInt(0)},
		},
		Methods: map[string]*ir.Method{
			"Greet": {Name: "Greet", Body: &ir.Block{}},
		},
	}
}

func TestNewInstanceHasDefaults(t *testing.T) {
	inst := New(personConcept())

	name, err := inst.ReadField("Name")
	if err != nil {
		t.Fatalf("read Name: %v", err)
	}
	if name.Kind() != value.KindString || name.AsString() != "" {
		t.Errorf("Name default: got=%s", value.Debug(name))
	}

	age, err := inst.ReadField("Age")
	if err != nil {
		t.Fatalf("read Age: %v", err)
	}
	if !age.AsNumber().IsZero() {
		t.Errorf("Age default: got=%s, want=0", age.AsNumber())
	}
}

func TestInstanceIdentity(t *testing.T) {
	concept := personConcept()
	a := New(concept)
	b := New(concept)
	if a.ID == b.ID {
		t.Fatalf("two instances share an identity")
	}
}

func TestUnknownField(t *testing.T) {
	inst := New(personConcept())
	if _, err := inst.ReadField("Salary"); !rterr.Is(err, rterr.UnknownField) {
		t.Errorf("read: got=%v, want UnknownField", err)
	}
	if err := inst.WriteRaw("Salary", value.NumberFromInt(1)); !rterr.Is(err, rterr.UnknownField) {
		t.Errorf("write: got=%v, want UnknownField", err)
	}
}

func TestFieldNamesDeclarationOrder(t *testing.T) {
	inst := New(personConcept())
	names := inst.FieldNames()
	if len(names) != 2 || names[0] != "Name" || names[1] != "Age" {
		t.Errorf("field names: got=%v, want [Name Age]", names)
	}
}

func TestRegistrySealAndDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.AddConcept(personConcept()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.AddConcept(personConcept()); err == nil {
		t.Errorf("duplicate concept accepted")
	}

	s := &SituationDef{Name: "Birthday"}
	if err := r.AddSituation(s); err != nil {
		t.Fatalf("add situation: %v", err)
	}
	if err := r.AddSituation(&SituationDef{Name: "Birthday"}); err == nil {
		t.Errorf("duplicate situation accepted")
	}

	r.Seal()
	if err := r.AddConcept(&ConceptDef{Name: "Late"}); err == nil {
		t.Errorf("concept accepted after seal")
	}
	if err := r.AddSituation(&SituationDef{Name: "Late"}); err == nil {
		t.Errorf("situation accepted after seal")
	}
}

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry()
	r.AddConcept(personConcept())
	r.Seal()

	if _, err := r.Concept("Person"); err != nil {
		t.Errorf("concept lookup: %v", err)
	}
	if _, err := r.Concept("Ghost"); err == nil {
		t.Errorf("unknown concept accepted")
	}
	if _, err := r.Situation("Ghost"); !rterr.Is(err, rterr.UnknownSituation) {
		t.Errorf("unknown situation: got=%v, want UnknownSituation", err)
	}
}

func TestSituationAdjusts(t *testing.T) {
	adj := &ir.Method{Name: "Greet", Body: &ir.Block{}}
	s := &SituationDef{
		Name:        "Formal",
		Adjustments: []Adjustment{{Concept: "Person", Method: "Greet", Body: adj}},
	}

	got, ok := s.Adjusts("Person", "Greet")
	if !ok || got != adj {
		t.Errorf("adjustment lookup failed")
	}
	if _, ok := s.Adjusts("Person", "Leave"); ok {
		t.Errorf("phantom adjustment")
	}
	if _, ok := s.Adjusts("Robot", "Greet"); ok {
		t.Errorf("phantom adjustment for other concept")
	}
}
