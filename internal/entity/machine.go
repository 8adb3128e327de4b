package entity

type MachineStatus string

const (
	MachineAvailable   MachineStatus = "AVAILABLE"
	MachineBusy        MachineStatus = "BUSY"
	MachineMaintenance MachineStatus = "MAINTENANCE"
)
