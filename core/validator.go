package core

import "fmt"

// operations whose qubit group is not restricted to registered loci
const barrierOperation = "barrier"

// ValidateRunRequest enforces the cross-field invariants of a submission
// before any network call. Rules run in a fixed order and the first
// failure is reported. The architecture reference is optional; without it
// only the architecture-independent rules apply. The function performs no
// I/O.
func ValidateRunRequest(req RunRequest, arch *QuantumArchitecture) error {
	if err := validateQubitMapping(req.QubitMapping); err != nil {
		return err
	}
	if arch != nil {
		mapping := mappingTable(req.QubitMapping)
		for _, circuit := range req.Circuits {
			if err := validateCircuitComponents(circuit, mapping, *arch); err != nil {
				return err
			}
		}
		for _, circuit := range req.Circuits {
			if err := validateCircuitLoci(circuit, mapping, *arch); err != nil {
				return err
			}
		}
	}
	if req.MoveValidationMode == MoveGateValidationModeNone &&
		req.MoveFrameTrackingMode == MoveGateFrameTrackingModeFull {
		return circuitValidationError("incompatible move gate options: frame tracking requires move gate validation")
	}
	if req.MaxCircuitDurationOverT2 != nil && *req.MaxCircuitDurationOverT2 < 0 {
		return circuitValidationError("max circuit duration over T2 must not be negative")
	}
	if req.Shots < 1 {
		return circuitValidationError("shots must be a positive integer")
	}
	if len(req.Circuits) == 0 {
		return circuitValidationError("run request contains no circuits")
	}
	for _, circuit := range req.Circuits {
		if len(circuit.Instructions) == 0 {
			return circuitValidationError(fmt.Sprintf("circuit %q contains no instructions", circuit.Name))
		}
	}
	return nil
}

func validateQubitMapping(mapping []SingleQubitMapping) error {
	if len(mapping) == 0 {
		return nil
	}
	seenPhysical := make(map[string]struct{}, len(mapping))
	seenLogical := make(map[string]struct{}, len(mapping))
	for _, entry := range mapping {
		if _, dup := seenLogical[entry.LogicalName]; dup {
			return circuitValidationError(
				fmt.Sprintf("qubit mapping is not injective: logical qubit %q mapped twice", entry.LogicalName),
			)
		}
		seenLogical[entry.LogicalName] = struct{}{}
		if _, dup := seenPhysical[entry.PhysicalName]; dup {
			return circuitValidationError(
				fmt.Sprintf("qubit mapping is not injective: physical qubit %q mapped twice", entry.PhysicalName),
			)
		}
		seenPhysical[entry.PhysicalName] = struct{}{}
	}
	return nil
}

func validateCircuitComponents(circuit Circuit, mapping map[string]string, arch QuantumArchitecture) error {
	for _, instruction := range circuit.Instructions {
		for _, qubit := range instruction.Qubits {
			physical := mapQubit(qubit, mapping)
			if !arch.HasQubit(physical) {
				return circuitValidationError(
					fmt.Sprintf("unknown component %q in circuit %q", physical, circuit.Name),
				)
			}
		}
	}
	return nil
}

func validateCircuitLoci(circuit Circuit, mapping map[string]string, arch QuantumArchitecture) error {
	for _, instruction := range circuit.Instructions {
		if instruction.Name == barrierOperation {
			continue
		}
		group := make([]string, 0, len(instruction.Qubits))
		for _, qubit := range instruction.Qubits {
			group = append(group, mapQubit(qubit, mapping))
		}
		if !operationAllowsGroup(arch.Operations[instruction.Name], group) {
			return circuitValidationError(fmt.Sprintf(
				"operation not supported on the given qubits: %s on %v in circuit %q",
				instruction.Name, group, circuit.Name,
			))
		}
	}
	return nil
}

// operationAllowsGroup requires an exact ordered match against one of the
// registered loci for the operation.
func operationAllowsGroup(allowed [][]string, group []string) bool {
	for _, locus := range allowed {
		if len(locus) != len(group) {
			continue
		}
		match := true
		for i := range locus {
			if locus[i] != group[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func mappingTable(mapping []SingleQubitMapping) map[string]string {
	if len(mapping) == 0 {
		return nil
	}
	table := make(map[string]string, len(mapping))
	for _, entry := range mapping {
		table[entry.LogicalName] = entry.PhysicalName
	}
	return table
}

func mapQubit(name string, mapping map[string]string) string {
	if mapping == nil {
		return name
	}
	if physical, ok := mapping[name]; ok {
		return physical
	}
	return name
}
