package testdata

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/concilia/concilia/internal/database"
	"github.com/concilia/concilia/internal/database/repository"
	"github.com/concilia/concilia/internal/service"
)

// Repos bundles the repositories Seed writes through.
type Repos struct {
	Expenses  *repository.ExpenseRepo
	Movements *repository.MovementRepo
}

func strptr(s string) *string { return &s }

// Seed loads a small, deterministic-shaped sample set: near-perfect pairs,
// an installment-shaped expense, a split-shaped charge, and a couple of
// unmatched strays. Useful for demos and manual poking.
func Seed(ctx context.Context, repos Repos) error {
	now := database.Now()
	day := func(daysAgo int) time.Time { return now.AddDate(0, 0, -daysAgo) }

	type pair struct {
		desc     string
		provider string
		method   string
		cents    int64
		expDay   int

		bankDesc string
		class    string
		bankDay  int
	}
	pairs := []pair{
		{"Gasolina Pemex", "Pemex", "credit_card", 85000, 2, "GASOLINERA PEMEX 5512 CDMX", "credit_card", 1},
		{"Despensa semanal", "OXXO", "debit_card", 43250, 5, "OXXO SUC REFORMA", "debit_card", 5},
		{"Internet y telefono", "Telmex", "transfer", 59900, 9, "PAGO TELMEX RECIBO", "transfer", 8},
		{"Comida con cliente", "La Docena", "credit_card", 128000, 12, "LA DOCENA POLANCO", "credit_card", 12},
		{"Papeleria oficina", "Office Depot", "credit_card", 21480, 15, "OFFICE DEPOT MX", "credit_card", 14},
	}

	for _, p := range pairs {
		e := repository.ExpenseRecord{
			ID:            uuid.NewString(),
			Date:          day(p.expDay),
			AmountCents:   p.cents,
			Description:   p.desc,
			Provider:      strptr(p.provider),
			PaymentMethod: p.method,
			Reconcilable:  true,
			State:         repository.StatePending,
		}
		if err := repos.Expenses.Insert(ctx, e); err != nil {
			return err
		}
		m := repository.BankMovement{
			ID:              uuid.NewString(),
			Date:            day(p.bankDay),
			AmountCents:     -p.cents,
			DescriptionRaw:  p.bankDesc,
			DescriptionNorm: service.NormalizeDescription(p.bankDesc),
			Kind:            repository.MovementCharge,
			AccountClass:    p.class,
			State:           repository.StatePending,
		}
		if err := repos.Movements.Insert(ctx, m); err != nil {
			return err
		}
	}

	// One charge big enough to split across several expenses.
	groupCharge := repository.BankMovement{
		ID:              uuid.NewString(),
		Date:            day(3),
		AmountCents:     -500000,
		DescriptionRaw:  "AMEX PAGO CORPORATIVO",
		DescriptionNorm: service.NormalizeDescription("AMEX PAGO CORPORATIVO"),
		Kind:            repository.MovementCharge,
		AccountClass:    "credit_card",
		State:           repository.StatePending,
	}
	if err := repos.Movements.Insert(ctx, groupCharge); err != nil {
		return err
	}
	for _, c := range []struct {
		desc  string
		cents int64
	}{
		{"Vuelo MTY", 250000},
		{"Hotel dos noches", 150000},
		{"Viaticos", 100000},
	} {
		e := repository.ExpenseRecord{
			ID:            uuid.NewString(),
			Date:          day(4),
			AmountCents:   c.cents,
			Description:   c.desc,
			PaymentMethod: "credit_card",
			Reconcilable:  true,
			State:         repository.StatePending,
		}
		if err := repos.Expenses.Insert(ctx, e); err != nil {
			return err
		}
	}

	// An invoice paid in installments: one expense, two bank charges.
	invoice := repository.ExpenseRecord{
		ID:            uuid.NewString(),
		Date:          day(20),
		AmountCents:   240000,
		Description:   "Licencias software anual",
		Provider:      strptr("Adobe"),
		PaymentMethod: "transfer",
		Reconcilable:  true,
		State:         repository.StatePending,
	}
	if err := repos.Expenses.Insert(ctx, invoice); err != nil {
		return err
	}
	for i, cents := range []int64{120000, 120000} {
		m := repository.BankMovement{
			ID:              uuid.NewString(),
			Date:            day(20 - i*15),
			AmountCents:     -cents,
			DescriptionRaw:  "ADOBE SYSTEMS PARCIALIDAD",
			DescriptionNorm: service.NormalizeDescription("ADOBE SYSTEMS PARCIALIDAD"),
			Kind:            repository.MovementCharge,
			AccountClass:    "transfer",
			State:           repository.StatePending,
		}
		if err := repos.Movements.Insert(ctx, m); err != nil {
			return err
		}
	}

	// Strays with no plausible counterpart.
	stray := repository.ExpenseRecord{
		ID:            uuid.NewString(),
		Date:          day(40),
		AmountCents:   9900,
		Description:   "Propina efectivo",
		PaymentMethod: "cash",
		Reconcilable:  true,
		State:         repository.StatePending,
	}
	if err := repos.Expenses.Insert(ctx, stray); err != nil {
		return err
	}
	deposit := repository.BankMovement{
		ID:              uuid.NewString(),
		Date:            day(6),
		AmountCents:     1500000,
		DescriptionRaw:  "DEPOSITO NOMINA",
		DescriptionNorm: service.NormalizeDescription("DEPOSITO NOMINA"),
		Kind:            repository.MovementCredit,
		AccountClass:    "transfer",
		State:           repository.StatePending,
	}
	return repos.Movements.Insert(ctx, deposit)
}
