// Package netem builds the `tc qdisc` command lines used by the
// network-fault treatments, ported directly from
// original_source/oxn/treatments.py's NetworkDelayTreatment and
// PacketLossTreatment inject()/clean() methods.
package netem

import "fmt"

// DelayAdd builds the inject command for NetworkDelayTreatment.
func DelayAdd(iface, delay, jitter, correlation string) []string {
	cmd := []string{"tc", "qdisc", "add", "dev", iface, "root", "netem", "delay", delay}
	if jitter != "" {
		cmd = append(cmd, jitter)
	}
	if correlation != "" {
		cmd = append(cmd, correlation)
	}
	return cmd
}

// DelayDel builds the clean command for NetworkDelayTreatment.
func DelayDel(iface string) []string {
	return []string{"tc", "qdisc", "del", "dev", iface, "root", "netem"}
}

// LossAdd builds the inject command for PacketLossTreatment.
func LossAdd(iface string, percentage string) []string {
	return []string{"tc", "qdisc", "add", "dev", iface, "root", "netem", "loss", "random", percentage}
}

// LossDel builds the clean command for PacketLossTreatment.
func LossDel(iface string) []string {
	return []string{"tc", "qdisc", "del", "dev", iface, "root", "netem"}
}

// CorruptAdd reproduces original_source/oxn/treatments.py's
// CorruptPacketTreatment.inject() command verbatim, including its "qdic"
// misspelling (should read "qdisc") — a source bug preserved as observed,
// per spec.md §9, rather than silently corrected. CorruptPacketTreatment
// itself is not wired into the treatment registry (it is absent from
// runner.py's treatment_keys table, the authoritative dispatch list
// SPEC_FULL.md's registry mirrors), so this builder exists only as a
// documented artifact of that reading, not a live code path.
func CorruptAdd(iface, percentage, correlation string) []string {
	cmd := []string{"tc", "qdic", "add", "dev", iface, "root", "netem", "corrupt", percentage}
	if correlation != "" {
		cmd = append(cmd, correlation)
	}
	return cmd
}

// CorruptDel is CorruptPacketTreatment.clean()'s command, which correctly
// spells "qdisc" even though inject() does not.
func CorruptDel(iface string) []string {
	return []string{"tc", "qdisc", "del", "dev", iface, "root", "netem"}
}

// VersionCheck is the precondition command both delay and loss treatments
// run before injecting ("tc -Version" in the original).
func VersionCheck() []string { return []string{"tc", "-Version"} }

// PercentString renders an integer 1-100 as oxn's "<n>%" parameter form.
func PercentString(pct int) string { return fmt.Sprintf("%d%%", pct) }
