package core

// ArgType is one of the four primitive types a function argument may take.
type ArgType int

const (
	ArgString ArgType = iota
	ArgInt
	ArgFloat
	ArgBool
)

func (t ArgType) String() string {
	switch t {
	case ArgString:
		return "string"
	case ArgInt:
		return "int"
	case ArgFloat:
		return "float"
	case ArgBool:
		return "bool"
	default:
		return "unknown"
	}
}

// FunctionArg declares one named argument of a spec's schema.
type FunctionArg struct {
	Name        string
	Type        ArgType
	Description string
	// Optional marks the argument as omittable on invoke.
	Optional bool
	// Enum restricts a string-typed argument to a fixed set of values.
	// Only valid when Type == ArgString.
	Enum []string
	// FilePath marks an agent-spec input variable whose value is a
	// filesystem path to be read and substituted by its file contents at
	// invocation time, rather than substituted literally. Meaningless on
	// code-spec arguments.
	FilePath bool
}

// Kind distinguishes the two spec variants.
type Kind int

const (
	KindCode Kind = iota
	KindAgent
)

func (k Kind) String() string {
	if k == KindAgent {
		return "agent"
	}
	return "code"
}

// ProviderKind names a model provider an agent spec may target. Only
// Anthropic and OpenAI have a concrete agentloop.Provider implementation in
// this module; Gemini and XAI are named for parity with the wider provider
// enumeration but have no implementation here.
type ProviderKind int

const (
	ProviderUnspecified ProviderKind = iota
	ProviderAnthropic
	ProviderOpenAI
	ProviderGemini
	ProviderXAI
)

func (p ProviderKind) String() string {
	switch p {
	case ProviderAnthropic:
		return "anthropic"
	case ProviderOpenAI:
		return "openai"
	case ProviderGemini:
		return "gemini"
	case ProviderXAI:
		return "xai"
	default:
		return "unspecified"
	}
}

// Spec is the common read-only surface of both spec variants.
type Spec interface {
	SpecName() string
	SpecKind() Kind
	SpecDescription() string
	SpecArgs() []FunctionArg
	SpecUses() []Spec
}

// Args is an immutable, validated bag of coerced argument values handed to
// a CodeCallable. There is no reflection-based binding: callables read their
// declared arguments back out by name.
type Args struct {
	values map[string]ArgValue
}

// NewArgs wraps a map of already-coerced values. Used internally by
// CoerceArgs; exported for tests that want to build an Args value directly.
func NewArgs(values map[string]ArgValue) Args {
	return Args{values: values}
}

// Has reports whether the named argument was supplied (required args are
// always present; optional args may be absent).
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

func (a Args) String(name string) string {
	v, ok := a.values[name]
	if !ok || v.typ != ArgString {
		return ""
	}
	return v.s
}

func (a Args) Int(name string) int64 {
	v, ok := a.values[name]
	if !ok || v.typ != ArgInt {
		return 0
	}
	return v.i
}

func (a Args) Float(name string) float64 {
	v, ok := a.values[name]
	if !ok || v.typ != ArgFloat {
		return 0
	}
	return v.f
}

func (a Args) Bool(name string) bool {
	v, ok := a.values[name]
	if !ok || v.typ != ArgBool {
		return false
	}
	return v.b
}

// Raw exposes the underlying values, e.g. for prompt-template substitution.
func (a Args) Raw() map[string]ArgValue {
	return a.values
}

// CodeCallable is the body of a code spec. ctx is always the first (and
// only structural) parameter; declared arguments are read back out of args
// by name, mirroring the spec's "remaining parameters must match the
// declared schema" rule without Go's lack of native keyword arguments.
type CodeCallable func(ctx *RunContext, args Args) (any, error)

// CodeSpec points at a deterministic callable.
type CodeSpec struct {
	Name        string
	Description string
	Args        []FunctionArg
	Uses        []Spec
	Callable    CodeCallable
	// HumanInLoop marks a code spec as the human-in-loop hook: the one
	// kind of tool allowed to courteously release the model-api semaphore
	// during a long blocking call (spec.md §5), and excluded from the
	// "only non-branching leaf tools" cache-policy check (spec.md §4.5).
	HumanInLoop bool
}

func (s *CodeSpec) SpecName() string            { return s.Name }
func (s *CodeSpec) SpecKind() Kind              { return KindCode }
func (s *CodeSpec) SpecDescription() string     { return s.Description }
func (s *CodeSpec) SpecArgs() []FunctionArg     { return s.Args }
func (s *CodeSpec) SpecUses() []Spec            { return s.Uses }

// AgentSpec declares an LLM-driven unit: prompts, inputs, and the tools
// (other specs) it may invoke.
type AgentSpec struct {
	Name                 string
	Description          string
	Args                 []FunctionArg
	SystemPromptTemplate string
	UserPromptTemplate   string
	Uses                 []Spec
	DefaultProvider      ProviderKind
}

func (s *AgentSpec) SpecName() string        { return s.Name }
func (s *AgentSpec) SpecKind() Kind          { return KindAgent }
func (s *AgentSpec) SpecDescription() string { return s.Description }
func (s *AgentSpec) SpecArgs() []FunctionArg { return s.Args }
func (s *AgentSpec) SpecUses() []Spec        { return s.Uses }
