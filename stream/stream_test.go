package stream

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/KromDaniel/peepgen/automaton"
	"github.com/KromDaniel/peepgen/isa"
	"github.com/KromDaniel/peepgen/rules"
)

var (
	testISA = isa.NewCatalog()

	pop   = testISA.MustDefine("POP", -1)
	dup   = testISA.MustDefine("DUP", 1)
	load  = testISA.MustDefine("LOAD", 1, isa.SlotLocal)
	store = testISA.MustDefine("STORE", -1, isa.SlotLocal)
	symA  = testISA.MustDefine("A", 0)
	symB  = testISA.MustDefine("B", 0)
	symC  = testISA.MustDefine("C", 0)
	move  = testISA.MustDefine("MOVE", 0, isa.SlotLocal, isa.SlotLocal)
	symY  = testISA.MustDefine("Y", 0)
	ldc   = testISA.MustDefine("LDC", 1, isa.SlotConst)
	iinc  = testISA.MustDefine("IINC", 0, isa.SlotLocal, isa.SlotByte)
	jmp   = testISA.MustDefine("JMP", 0, isa.SlotBranch)
	push  = testISA.MustDefine("PUSH", 1, isa.SlotShort)
)

var dupPop = rules.Raw{Name: "dup-pop", LHS: []rules.Pattern{rules.P(dup), rules.P(pop)}}

var storeLoad = rules.Raw{
	Name: "store-load",
	LHS:  []rules.Pattern{rules.P(store, "x"), rules.P(load, "x")},
	RHS:  []rules.Pattern{rules.P(dup), rules.P(store, "x")},
}

var loadPop = rules.Raw{Name: "load-pop", LHS: []rules.Pattern{rules.P(load, rules.Wildcard), rules.P(pop)}}

var loadStore = rules.Raw{Name: "load-store", LHS: []rules.Pattern{rules.P(load, "x"), rules.P(store, "x")}}

func newScanner(t testing.TB, cfg Config, opts rules.Options, raws ...rules.Raw) *Scanner {
	t.Helper()
	set, err := rules.Compile(raws, opts)
	if err != nil {
		t.Fatalf("rules.Compile() error = %v", err)
	}
	auto, err := automaton.Build(set, testISA.Compare, automaton.Options{})
	if err != nil {
		t.Fatalf("automaton.Build() error = %v", err)
	}
	sc, err := NewScanner(auto, cfg)
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}
	return sc
}

// spans renders matches as "name@start-end".
func spans(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = fmt.Sprintf("%s@%d-%d", m.Rule.Name, m.Start, m.End)
	}
	return out
}

func listing(code []Instruction) []string {
	out := make([]string, len(code))
	for i, in := range code {
		out[i] = in.String()
	}
	return out
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "zero config is valid", cfg: Config{}},
		{name: "positive limit", cfg: Config{MaxMatches: 3}},
		{name: "negative limit", cfg: Config{MaxMatches: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	if got := DefaultConfig().ApplyDefaults(); got.Context == nil {
		t.Error("ApplyDefaults() left Context nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if got := (Config{Context: ctx}).ApplyDefaults(); got.Context != ctx {
		t.Error("ApplyDefaults() replaced an explicit Context")
	}
}

func TestNewScannerErrors(t *testing.T) {
	if _, err := NewScanner(nil, Config{}); !errors.Is(err, ErrNilAutomaton) {
		t.Errorf("NewScanner(nil) error = %v, want ErrNilAutomaton", err)
	}
	auto, err := automaton.Build(&rules.Set{}, testISA.Compare, automaton.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewScanner(auto, Config{MaxMatches: -2}); !errors.Is(err, ErrNegativeLimit) {
		t.Errorf("NewScanner(MaxMatches: -2) error = %v, want ErrNegativeLimit", err)
	}
}

func TestFind(t *testing.T) {
	tests := []struct {
		name  string
		opts  rules.Options
		rules []rules.Raw
		code  []Instruction
		want  []string
	}{
		{
			name:  "dup pop",
			rules: []rules.Raw{dupPop},
			code:  []Instruction{I(load, 1), I(dup), I(pop), I(store, 2)},
			want:  []string{"dup-pop@1-3"},
		},
		{
			name:  "trailing pair after extra dup",
			rules: []rules.Raw{dupPop},
			code:  []Instruction{I(dup), I(dup), I(pop)},
			want:  []string{"dup-pop@1-3"},
		},
		{
			name:  "repeated pairs",
			rules: []rules.Raw{dupPop},
			code:  []Instruction{I(dup), I(pop), I(dup), I(pop)},
			want:  []string{"dup-pop@0-2", "dup-pop@2-4"},
		},
		{
			name:  "retry after unknown symbol",
			rules: []rules.Raw{{Name: "ab", LHS: []rules.Pattern{rules.P(symA), rules.P(symB)}}},
			code:  []Instruction{I(symC), I(symA), I(symB)},
			want:  []string{"ab@1-3"},
		},
		{
			name:  "overlapping prefix",
			rules: []rules.Raw{{Name: "aab", LHS: []rules.Pattern{rules.P(symA), rules.P(symA), rules.P(symB)}}},
			code:  []Instruction{I(symA), I(symA), I(symA), I(symB)},
			want:  []string{"aab@1-4"},
		},
		{
			name:  "failed constraint consumes its instructions",
			rules: []rules.Raw{storeLoad, loadPop},
			code:  []Instruction{I(store, 1), I(load, 2), I(pop)},
			want:  []string{},
		},
		{
			name:  "scan resumes after failed constraint",
			rules: []rules.Raw{storeLoad, loadPop},
			code:  []Instruction{I(store, 1), I(load, 2), I(load, 3), I(pop)},
			want:  []string{"load-pop@2-4"},
		},
		{
			name:  "earlier match delivered before failed constraint",
			rules: []rules.Raw{dupPop, storeLoad, loadPop},
			code:  []Instruction{I(dup), I(pop), I(store, 1), I(load, 2), I(pop), I(dup), I(pop)},
			want:  []string{"dup-pop@0-2", "dup-pop@5-7"},
		},
		{
			name:  "pending match delivered before later failed constraint",
			rules: []rules.Raw{storeLoad},
			code:  []Instruction{I(store, 1), I(load, 1), I(store, 3), I(load, 4), I(store, 5), I(load, 5)},
			want:  []string{"store-load@0-2", "store-load@4-6"},
		},
		{
			name:  "pending match wins over overlapping failed constraint",
			rules: []rules.Raw{storeLoad, loadStore},
			code:  []Instruction{I(store, 1), I(load, 1), I(store, 2)},
			want:  []string{"store-load@0-2"},
		},
		{
			name:  "leftmost wins over overlapping",
			rules: []rules.Raw{storeLoad, loadPop},
			code:  []Instruction{I(store, 1), I(load, 1), I(pop)},
			want:  []string{"store-load@0-2"},
		},
		{
			name:  "longest match",
			opts:  rules.Options{AllowOverlap: true},
			rules: longestRules,
			code:  []Instruction{I(move, 1, 1), I(symY)},
			want:  []string{"move-y@0-2"},
		},
		{
			name:  "shorter match when longer dies",
			opts:  rules.Options{AllowOverlap: true},
			rules: longestRules,
			code:  []Instruction{I(move, 1, 1), I(symA)},
			want:  []string{"move-self@0-1"},
		},
		{
			name:  "shorter match at end of input",
			opts:  rules.Options{AllowOverlap: true},
			rules: longestRules,
			code:  []Instruction{I(symA), I(move, 4, 4)},
			want:  []string{"move-self@1-2"},
		},
		{
			name:  "unsatisfied shorter match",
			opts:  rules.Options{AllowOverlap: true},
			rules: longestRules,
			code:  []Instruction{I(move, 1, 2), I(symA)},
			want:  []string{},
		},
		{
			name:  "unsatisfied shorter match ends the attempt",
			opts:  rules.Options{AllowOverlap: true},
			rules: longestRules,
			code:  []Instruction{I(move, 1, 2), I(symY)},
			want:  []string{},
		},
		{
			name:  "empty input",
			rules: []rules.Raw{dupPop},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newScanner(t, Config{}, tt.opts, tt.rules...)
			got, err := sc.FindAll(tt.code)
			if err != nil {
				t.Fatalf("FindAll() error = %v", err)
			}
			if s := spans(got); !reflect.DeepEqual(s, tt.want) {
				t.Errorf("FindAll() = %v, want %v", s, tt.want)
			}
		})
	}
}

var longestRules = []rules.Raw{
	{Name: "move-self", LHS: []rules.Pattern{rules.P(move, "r", "r")}},
	{Name: "move-y", LHS: []rules.Pattern{rules.P(move, rules.Wildcard, rules.Wildcard), rules.P(symY)}},
}

func TestFindMatchDetails(t *testing.T) {
	sc := newScanner(t, Config{}, rules.Options{}, storeLoad)
	got, err := sc.FindAll([]Instruction{I(ldc, 7), I(store, 4), I(load, 4)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("FindAll() = %v, want one match", spans(got))
	}
	m := got[0]
	if m.Offset != ldc.Size() {
		t.Errorf("Offset = %d, want %d", m.Offset, ldc.Size())
	}
	if want := [][]int64{{4}, {4}}; !reflect.DeepEqual(m.Values, want) {
		t.Errorf("Values = %v, want %v", m.Values, want)
	}
}

func TestFindStops(t *testing.T) {
	code := []Instruction{I(dup), I(pop), I(dup), I(pop), I(dup), I(pop)}

	t.Run("callback", func(t *testing.T) {
		sc := newScanner(t, Config{}, rules.Options{}, dupPop)
		calls := 0
		err := sc.Find(code, func(Match) bool {
			calls++
			return calls < 2
		})
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if calls != 2 {
			t.Errorf("callback ran %d times, want 2", calls)
		}
	})

	t.Run("max matches", func(t *testing.T) {
		sc := newScanner(t, Config{MaxMatches: 1}, rules.Options{}, dupPop)
		got, err := sc.FindAll(code)
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		if len(got) != 1 {
			t.Errorf("FindAll() = %v, want one match", spans(got))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sc := newScanner(t, Config{Context: ctx}, rules.Options{}, dupPop)
		if _, err := sc.FindAll(code); !errors.Is(err, context.Canceled) {
			t.Errorf("FindAll() error = %v, want context.Canceled", err)
		}
	})
}

func TestFindRejectsMalformedCode(t *testing.T) {
	sc := newScanner(t, Config{}, rules.Options{}, dupPop)

	if _, err := sc.FindAll([]Instruction{I(load)}); !errors.Is(err, ErrImmediateCount) {
		t.Errorf("missing immediate: error = %v, want ErrImmediateCount", err)
	}
	if _, err := sc.FindAll([]Instruction{I(dup, 1)}); !errors.Is(err, ErrImmediateCount) {
		t.Errorf("extra immediate: error = %v, want ErrImmediateCount", err)
	}
	if _, err := sc.FindAll([]Instruction{{}}); !errors.Is(err, ErrMissingSymbol) {
		t.Errorf("nil symbol: error = %v, want ErrMissingSymbol", err)
	}
}

func TestConcurrentScanners(t *testing.T) {
	sc := newScanner(t, Config{}, rules.Options{}, dupPop, storeLoad)
	code := []Instruction{I(store, 1), I(load, 1), I(dup), I(pop)}

	errs := make(chan error, 8)
	for i := 0; i < cap(errs); i++ {
		go func() {
			got, err := sc.FindAll(code)
			if err == nil && len(got) != 2 {
				err = fmt.Errorf("got %v", spans(got))
			}
			errs <- err
		}()
	}
	for i := 0; i < cap(errs); i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}
