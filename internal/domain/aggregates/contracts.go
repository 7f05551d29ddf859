package aggregates

// WriteTxOwnership defines who owns write transaction boundaries.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate means aggregate write methods start/manage
	// atomic DB transactions internally, co-committing state and outbox.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// ReadPolicy defines how aggregate contracts expose reads.
type ReadPolicy string

const (
	// ReadPolicyInvariantScoped allows only reads needed for invariant
	// decisions in write flows; all query traffic goes to projections.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
)

// Contract describes aggregate-level policy expectations.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
}

// Aggregate is the common marker for all aggregate command surfaces.
type Aggregate interface {
	Contract() Contract
}

var (
	PartAggregateContract = Contract{
		Name:             "catalog.part",
		WriteTxOwnership: WriteTxOwnedByAggregate,
		ReadPolicy:       ReadPolicyInvariantScoped,
	}
	OrderAggregateContract = Contract{
		Name:             "orders.order",
		WriteTxOwnership: WriteTxOwnedByAggregate,
		ReadPolicy:       ReadPolicyInvariantScoped,
	}
	UserAggregateContract = Contract{
		Name:             "identity.user",
		WriteTxOwnership: WriteTxOwnedByAggregate,
		ReadPolicy:       ReadPolicyInvariantScoped,
	}
)
