package clcdk

import "strconv"

type conventions struct {
	qualifier  string
	mainRegion string
}

// NewConventions inits a convention instance.
func NewConventions(qual, mainRegion string) Conventions {
	return conventions{qualifier: qual, mainRegion: mainRegion}
}

func (c conventions) InstancedStackName(instance int) string {
	return c.Qualifier() + strconv.Itoa(instance)
}

func (c conventions) Qualifier() string {
	return c.qualifier
}

func (c conventions) MainRegion() string {
	return c.mainRegion
}

func (c conventions) ExportPrefix(instance int) string {
	return c.InstancedStackName(instance)
}

func (c conventions) ParameterPath(instance int) string {
	return "/" + c.Qualifier() + "/" + strconv.Itoa(instance)
}

// Conventions describes the interface for retrieving info that needs to be consistent between
// the stack and the other programs, i.e: magefiles and the stacks of the tiers that import the
// network. Conventions are shared between all stacks, instances, accounts and regions.
type Conventions interface {
	InstancedStackName(instance int) string
	Qualifier() string
	MainRegion() string
	ExportPrefix(instance int) string
	ParameterPath(instance int) string
}
