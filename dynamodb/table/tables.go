package table

// Tables is the pair of tables every deployment owns.
type Tables struct {
	// Models holds point records (players, series, the series registry,
	// credentials and tokens) keyed by id.
	Models TableDefinition
	// RangeModels holds records that share a partition id and are ordered by range.
	RangeModels TableDefinition
}

// ForDeployment names the tables "<deployment>-models" and "<deployment>-rangemodels".
// An empty deployment yields the bare names.
func ForDeployment(deployment string) Tables {
	prefix := ""
	if deployment != "" {
		prefix = deployment + "-"
	}
	return Tables{
		Models: TableDefinition{
			Name: prefix + "models",
			KeyDefinitions: PrimaryKeyDefinition{
				PartitionKey: KeyDef{Name: "id", Kind: KeyKindS},
			},
			TimeToLiveKey: "ttl",
		},
		RangeModels: TableDefinition{
			Name: prefix + "rangemodels",
			KeyDefinitions: PrimaryKeyDefinition{
				PartitionKey: KeyDef{Name: "id", Kind: KeyKindS},
				SortKey:      KeyDef{Name: "range", Kind: KeyKindN},
			},
		},
	}
}

// All lists the tables in creation order.
func (t Tables) All() []TableDefinition {
	return []TableDefinition{t.Models, t.RangeModels}
}
