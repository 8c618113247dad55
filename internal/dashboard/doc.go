// Package dashboard persists the shared aggregate view of every cabinet in
// SQLite: the cabinet records the supervisory tool lists, plus the handover
// and handback transfer history. Counters-only refreshes never touch a
// record's status; only an explicit workflow transition may change it.
package dashboard
