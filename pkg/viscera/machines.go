package viscera

import "fmt"

// NodeStatus is the lifecycle state of a machine.
type NodeStatus int

const (
	StatusNew NodeStatus = iota
	StatusCommissioning
	StatusFailedCommissioning
	StatusMissing
	StatusReady
	StatusReserved
	StatusDeployed
	StatusRetired
	StatusBroken
	StatusDeploying
	StatusAllocated
	StatusFailedDeployment
	StatusReleasing
	StatusFailedReleasing
	StatusDiskErasing
	StatusFailedDiskErasing
	StatusRescueMode
	StatusEnteringRescueMode
	StatusFailedEnteringRescueMode
	StatusExitingRescueMode
	StatusFailedExitingRescueMode
	StatusTesting
	StatusFailedTesting
)

var nodeStatusNames = map[NodeStatus]string{
	StatusNew:                      "New",
	StatusCommissioning:            "Commissioning",
	StatusFailedCommissioning:      "Failed commissioning",
	StatusMissing:                  "Missing",
	StatusReady:                    "Ready",
	StatusReserved:                 "Reserved",
	StatusDeployed:                 "Deployed",
	StatusRetired:                  "Retired",
	StatusBroken:                   "Broken",
	StatusDeploying:                "Deploying",
	StatusAllocated:                "Allocated",
	StatusFailedDeployment:         "Failed deployment",
	StatusReleasing:                "Releasing",
	StatusFailedReleasing:          "Releasing failed",
	StatusDiskErasing:              "Disk erasing",
	StatusFailedDiskErasing:        "Failed disk erasing",
	StatusRescueMode:               "Rescue mode",
	StatusEnteringRescueMode:       "Entering rescue mode",
	StatusFailedEnteringRescueMode: "Failed to enter rescue mode",
	StatusExitingRescueMode:        "Exiting rescue mode",
	StatusFailedExitingRescueMode:  "Failed to exit rescue mode",
	StatusTesting:                  "Testing",
	StatusFailedTesting:            "Failed testing",
}

func (s NodeStatus) String() string {
	if name, ok := nodeStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("NodeStatus(%d)", int(s))
}

func nodeStatusValue(o *Object, datum any) (any, error) {
	code, err := CheckInt(datum)
	if err != nil {
		return nil, err
	}
	return NodeStatus(code), nil
}

func init() {
	Register(TypeSpec{
		Name: "Machine",
		Fields: []FieldSpec{
			{Name: "system_id", PK: true, ReadOnly: true, ToValue: stringValue},
			{Name: "hostname", ToValue: stringValue},
			{Name: "fqdn", ReadOnly: true, ToValue: stringValue},
			{Name: "architecture", ToValue: stringValue},
			{Name: "status", ReadOnly: true, ToValue: nodeStatusValue},
			{Name: "status_name", ReadOnly: true, ToValue: stringValue},
			{Name: "power_state", ReadOnly: true,
				Default: "unknown", HasDefault: true},
			{Name: "cpu_count", ToValue: intValue},
			{Name: "memory", ToValue: intValue},
			{Name: "osystem", ReadOnly: true, ToValue: stringValue},
			{Name: "distro_series", ReadOnly: true, ToValue: stringValue},
			{Name: "tags", Datum: "tag_names", ToValue: stringSliceValue,
				ListOps: &ListOps{
					Add:    "add_tag",
					Remove: "remove_tag",
					Param:  "tag",
				}},
			{Name: "zone", ToValue: relatedValue("Zone", "")},
		},
	})
	RegisterSet(SetSpec{Name: "Machines", Object: "Machine"})
}
