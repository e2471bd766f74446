package wallet

// Category is the closed set of record categories the anoncreds engine and
// its issuer/holder operations rely on (spec §4.1). Implementations may
// reject any other category name.
type Category string

const (
	CategoryLinkSecret              Category = "LinkSecret"
	CategoryCred                    Category = "Cred"
	CategoryCredDef                 Category = "CredDef"
	CategoryCredDefPriv             Category = "CredDefPriv"
	CategoryCredKeyCorrectnessProof Category = "CredKeyCorrectnessProof"
	CategoryCredSchema              Category = "CredSchema"
	CategoryCredMapSchemaID         Category = "CredMapSchemaId"
	CategoryRevReg                  Category = "RevReg"
	CategoryRevRegDelta             Category = "RevRegDelta"
	CategoryRevRegInfo              Category = "RevRegInfo"
	CategoryRevRegDef               Category = "RevRegDef"
	CategoryRevRegDefPriv           Category = "RevRegDefPriv"
)

var knownCategories = map[Category]bool{
	CategoryLinkSecret:              true,
	CategoryCred:                    true,
	CategoryCredDef:                 true,
	CategoryCredDefPriv:             true,
	CategoryCredKeyCorrectnessProof: true,
	CategoryCredSchema:              true,
	CategoryCredMapSchemaID:         true,
	CategoryRevReg:                  true,
	CategoryRevRegDelta:             true,
	CategoryRevRegInfo:              true,
	CategoryRevRegDef:               true,
	CategoryRevRegDefPriv:           true,
}

// IsKnown reports whether c is one of the closed-set categories above.
func (c Category) IsKnown() bool { return knownCategories[c] }
