// Package authz はリクエスト単位の認可判定を提供する。
// 判定はリクエストに付与済みの認証主体とパスパラメータのみを参照し、I/Oを行わない。
package authz

import (
	"fmt"

	"github.com/hitoshi/taskman/internal/model"
)

// Mode は複数の要件の組み合わせ方を表す。ゼロ値はModeAll。
type Mode int

const (
	// ModeAll は全ての要件を満たす必要がある。
	ModeAll Mode = iota
	// ModeAny はいずれかの要件を満たせばよい。
	ModeAny
)

// String はModeの名前を返す。
func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeAny:
		return "any"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode は"all"/"any"をModeに変換する。空文字列はModeAll。
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "all", "every":
		return ModeAll, nil
	case "any":
		return ModeAny, nil
	default:
		return 0, fmt.Errorf("unknown authorization mode: %q", s)
	}
}

// Request は認可判定に必要なリクエストの値。
// SubjectIDは認証済みの場合のみ空でない。
type Request struct {
	SubjectID string
	Params    map[string]string
}

// Authenticated は認証済みかどうかを返す。
func (r Request) Authenticated() bool {
	return r.SubjectID != ""
}

// Requirement は認証済みリクエストに対する追加要件。
type Requirement func(Request) bool

// IDMatchesParam はパスパラメータparamが認証主体のIDと一致することを要求する。
func IDMatchesParam(param string) Requirement {
	return func(r Request) bool {
		v, ok := r.Params[param]
		return ok && v != "" && v == r.SubjectID
	}
}

// Policy はルートに宣言する認可要件の集合。
type Policy struct {
	mode         Mode
	requirements []Requirement
}

// NewPolicy はPolicyを生成する。未知のModeはエラーになる。
// 認証済みであることは常に要求されるため、requirementsには追加要件のみを渡す。
func NewPolicy(mode Mode, requirements ...Requirement) (*Policy, error) {
	if mode != ModeAll && mode != ModeAny {
		return nil, fmt.Errorf("unknown authorization mode: %s", mode)
	}
	return &Policy{mode: mode, requirements: requirements}, nil
}

// MustPolicy はNewPolicyのエラー時にpanicする版。ルート定義で使用する。
func MustPolicy(mode Mode, requirements ...Requirement) *Policy {
	p, err := NewPolicy(mode, requirements...)
	if err != nil {
		panic(err)
	}
	return p
}

// Authenticated は認証済みであることのみを要求するPolicy。
func Authenticated() *Policy {
	return &Policy{mode: ModeAll}
}

// Mode はPolicyの組み合わせ方を返す。
func (p *Policy) Mode() Mode {
	return p.mode
}

// Decide はリクエストを判定する。
// 未認証の場合はUnauthenticated、追加要件を満たさない場合はForbiddenを返す。
func (p *Policy) Decide(r Request) error {
	if !r.Authenticated() {
		return model.NewUnauthenticatedError()
	}
	if len(p.requirements) == 0 {
		return nil
	}

	if p.mode == ModeAny {
		for _, req := range p.requirements {
			if req(r) {
				return nil
			}
		}
		return model.NewForbiddenError()
	}

	for _, req := range p.requirements {
		if !req(r) {
			return model.NewForbiddenError()
		}
	}
	return nil
}
