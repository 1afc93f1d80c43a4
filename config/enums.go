package config

import "fmt"

// MasterPolicy specifies what happens when a shape is copied into a document
// which does not have the master the shape refers to.
type MasterPolicy int

const (
	// MasterPolicyImport brings master part and all bookkeeping entries into
	// destination document.
	MasterPolicyImport MasterPolicy = iota
	// MasterPolicyError refuses to copy.
	MasterPolicyError
)

var masterPolicyNames = map[MasterPolicy]string{
	MasterPolicyImport: "import",
	MasterPolicyError:  "error",
}

func (p MasterPolicy) String() string {
	if s, ok := masterPolicyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("MasterPolicy(%d)", int(p))
}

// ParseMasterPolicy converts textual representation to MasterPolicy.
func ParseMasterPolicy(name string) (MasterPolicy, error) {
	for p, s := range masterPolicyNames {
		if s == name {
			return p, nil
		}
	}
	return MasterPolicyImport, fmt.Errorf("%s is not a valid MasterPolicy, try [import, error]", name)
}

func (p MasterPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *MasterPolicy) UnmarshalText(text []byte) error {
	v, err := ParseMasterPolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
