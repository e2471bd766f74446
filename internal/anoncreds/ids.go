package anoncreds

import "fmt"

// Deterministic id construction, matching the indy/anoncreds convention of
// deriving ids from their constituent parts rather than random UUIDs, so
// that issuer_create_and_store_credential_def/revoc_reg can detect and
// return an existing artifact instead of erroring on a benign re-create
// (spec §4.3).

func schemaID(issuerDID, name, version string) string {
	return fmt.Sprintf("%s:2:%s:%s", issuerDID, name, version)
}

func credDefID(issuerDID, schemaID, signatureType, tag string) string {
	return fmt.Sprintf("%s:3:%s:%s:%s", issuerDID, signatureType, schemaID, tag)
}

func revRegID(credDefID, tag string) string {
	return fmt.Sprintf("%s:4:CL_ACCUM:%s", credDefID, tag)
}
