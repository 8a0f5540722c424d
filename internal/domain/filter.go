package domain

// FilterOp — вид условия фильтра метаданных.
type FilterOp int

const (
	FilterOpEq FilterOp = iota // поле равно значению
	FilterOpNe                 // поле не равно значению
	FilterOpExists             // поле присутствует в метаданных
)

// FilterCondition — одно условие над полем метаданных.
type FilterCondition struct {
	Field string
	Op    FilterOp
	Value any
}

// VectorFilter — предикат над метаданными для поиска ближайших соседей.
// Нейтрален к конкретному векторному индексу: адаптер переводит его
// в язык запросов своего хранилища.
type VectorFilter struct {
	Conditions []FilterCondition
}

func NewVectorFilter(conditions ...FilterCondition) *VectorFilter {
	return &VectorFilter{Conditions: conditions}
}

func Eq(field string, value any) FilterCondition {
	return FilterCondition{Field: field, Op: FilterOpEq, Value: value}
}

func Ne(field string, value any) FilterCondition {
	return FilterCondition{Field: field, Op: FilterOpNe, Value: value}
}

func Exists(field string) FilterCondition {
	return FilterCondition{Field: field, Op: FilterOpExists}
}
