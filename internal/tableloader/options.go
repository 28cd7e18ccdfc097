package tableloader

// Options select which datasets are joined onto the trigger tables.
type Options struct {
	LoadDL1Images      bool
	LoadDL1Parameters  bool
	LoadDL2            bool
	LoadSimulated      bool
	LoadTrueImages     bool
	LoadTrueParameters bool
	LoadInstrument     bool
}

// DefaultOptions loads DL1 parameters only.
func DefaultOptions() Options {
	return Options{LoadDL1Parameters: true}
}
