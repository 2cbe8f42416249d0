/*
Dirty-Flag Tracker: two independent per-client bits tracking why a pending
transaction must abort. Grounded on Client.TxFailed
(internal/common/client.go), split into the two kinds this model
distinguishes (DIRTY_CAS vs DIRTY_EXEC) since the prior version only
tracked the CAS case.
*/
package txn

// dirtyFlags holds DIRTY_CAS and DIRTY_EXEC. Both are cleared only by the
// terminal transitions (EXEC, DISCARD, disconnect) or, for DIRTY_CAS alone,
// by UNWATCH. Entering MULTI does not clear either bit — DIRTY_CAS set
// before MULTI still cancels the following EXEC.
type dirtyFlags struct {
	cas  bool
	exec bool
}

func (d *dirtyFlags) setCAS()    { d.cas = true }
func (d *dirtyFlags) setExec()   { d.exec = true }
func (d *dirtyFlags) CAS() bool  { return d.cas }
func (d *dirtyFlags) Exec() bool { return d.exec }
func (d *dirtyFlags) clearCAS()  { d.cas = false }
func (d *dirtyFlags) clearAll()  { d.cas, d.exec = false, false }
