// Package scheduler drives the agent's periodic work.
//
// A tick runs its tasks in registration order. The agent registers
//
//	health -> heartbeat -> reconcile
//
// with health marked critical: when the backend is not healthy, the rest of the
// tick is skipped. The first tick runs as soon as Run is called.
package scheduler
