// sfex runs the bundled showcase story against the execution engine: an
// Order concept whose observers keep Tax and Total consistent, a Sale
// situation adjusting Checkout, and a hot loop that crosses the promotion
// threshold. It exists to exercise a configured engine end to end and to
// show the hot-site report.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sfexlang/sfex/internal/config"
	"github.com/sfexlang/sfex/internal/engine"
	"github.com/sfexlang/sfex/internal/ir"
	"github.com/sfexlang/sfex/internal/object"
	"github.com/sfexlang/sfex/internal/value"
)

func main() {
	configPath := flag.String("config", "", "engine config file (YAML)")
	iterations := flag.Int("n", 500, "checkout invocations to run")
	flag.Parse()

	if err := run(*configPath, *iterations); err != nil {
		fmt.Fprintf(os.Stderr, "sfex: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, iterations int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := registerStory(eng); err != nil {
		return err
	}
	eng.Seal()

	ctx := eng.NewContext()
	order, err := eng.MakeInstance("Order")
	if err != nil {
		return err
	}

	if err := eng.WriteField(ctx, order, "Price", value.NumberFromInt(200)); err != nil {
		return err
	}
	total, err := eng.Invoke(ctx, "main:checkout", order, "Checkout", nil)
	if err != nil {
		return err
	}
	fmt.Printf("checkout: %s\n", value.Display(total))

	if err := ctx.SwitchOn("Sale"); err != nil {
		return err
	}
	total, err = eng.Invoke(ctx, "main:checkout", order, "Checkout", nil)
	if err != nil {
		return err
	}
	fmt.Printf("checkout (sale): %s\n", value.Display(total))
	if err := ctx.SwitchOff("Sale"); err != nil {
		return err
	}

	for i := 0; i < iterations; i++ {
		if _, err := eng.Invoke(ctx, "main:checkout", order, "Checkout", nil); err != nil {
			return err
		}
	}

	fmt.Println("hot sites:")
	for _, hs := range eng.Manager().Profiler().HotSites(uint64(cfg.PromotionThreshold)) {
		state := "interpreted"
		if eng.Manager().Compiled(hs.Site) {
			state = "compiled"
		}
		fmt.Printf("  %-20s %8d  %s\n", hs.Site, hs.Count, state)
	}
	return nil
}

func registerStory(eng *engine.Engine) error {
	rate, err := value.NumberFromString("0.1")
	if err != nil {
		return err
	}
	order := &object.ConceptDef{
		Name: "Order",
		Fields: []object.FieldDecl{
			{Name: "Price", Default: value.NumberFromInt(0)},
			{Name: "Tax", Default: value.NumberFromInt(0)},
			{Name: "Total", Default: value.NumberFromInt(0)},
		},
		Methods: map[string]*ir.Method{
			"Checkout": {
				Name: "Checkout",
				Body: &ir.Block{Stmts: []ir.Stmt{
					&ir.Return{Value: &ir.FieldRead{Name: "Total"}},
				}},
			},
		},
		Observers: []object.ObserverDecl{
			{Field: "Price", Body: &ir.Block{Stmts: []ir.Stmt{
				&ir.Set{Field: "Tax", Value: &ir.Binary{
					Op:    ir.OpMul,
					Left:  &ir.FieldRead{Name: "Price"},
					Right: &ir.Lit{Value: rate},
				}},
			}}},
			{Field: "Tax", Body: &ir.Block{Stmts: []ir.Stmt{
				&ir.Set{Field: "Total", Value: &ir.Binary{
					Op:    ir.OpAdd,
					Left:  &ir.FieldRead{Name: "Price"},
					Right: &ir.FieldRead{Name: "Tax"},
				}},
			}}},
		},
	}
	if err := eng.RegisterConcept(order); err != nil {
		return err
	}

	half := value.NumberFromInt(2)
	sale := &object.SituationDef{
		Name: "Sale",
		Adjustments: []object.Adjustment{{
			Concept: "Order",
			Method:  "Checkout",
			Body: &ir.Method{
				Name: "Checkout",
				Body: &ir.Block{Stmts: []ir.Stmt{
					&ir.Return{Value: &ir.Binary{
						Op:    ir.OpDiv,
						Left:  &ir.Proceed{},
						Right: &ir.Lit{Value: half},
					}},
				}},
			},
		}},
	}
	return eng.RegisterSituation(sale)
}
