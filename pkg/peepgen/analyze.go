package peepgen

// AnalysisResult summarizes a compiled rule set.
type AnalysisResult struct {
	Name        string
	Rules       int
	States      int
	Alphabet    int
	Settled     int
	Fingerprint uint64
}

// Analyze loads and compiles a definition file and reports the size of the
// resulting automaton. It fails exactly when code generation would.
//
// Example:
//
//	result, err := peepgen.Analyze("jvm.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.States)
func Analyze(path string) (*AnalysisResult, error) {
	def, err := Load(path)
	if err != nil {
		return nil, err
	}
	auto, err := Build(def, 0)
	if err != nil {
		return nil, err
	}

	table := auto.Table()
	result := &AnalysisResult{
		Name:        def.Name,
		Rules:       len(table.Rules),
		States:      len(table.Next),
		Alphabet:    len(table.Symbols),
		Fingerprint: table.Fingerprint(),
	}
	for _, settled := range table.Settled {
		if settled {
			result.Settled++
		}
	}
	return result, nil
}
