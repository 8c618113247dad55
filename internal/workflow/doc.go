// Package workflow implements the cabinet state machine shared by the
// quality and production tools. Transitions are gated on ledger completeness:
// handover warns about open punches, handback requires every open punch
// implemented, and final closure requires an empty open list plus a fully
// disposed checklist. Each successful transition writes status and recounted
// counters to the dashboard in one step.
package workflow
