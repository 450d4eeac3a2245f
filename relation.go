package canele

import (
	"fmt"
)

// accessor is one relationship property installed on a model, looked
// up by Record.Parent and Record.Collection.
type accessor struct {
	forward *ManyToOne // parent lookup on the owning side
	reverse *ManyToOne // child collection on the referenced side
	m2m     *ManyToMany
	m2mLeft bool // which side of the join table this accessor serves
}

// RelationOption configures a relationship at definition time.
type RelationOption func(*relationConfig)

type relationConfig struct {
	name        string
	reverseName string
	fkColumn    string
	refColumn   string
	joinTable   string
	nullable    bool
}

// As overrides the forward accessor name on the owning model.
func As(name string) RelationOption {
	return func(c *relationConfig) { c.name = name }
}

// Related overrides the reverse accessor name installed on the
// referenced model.
func Related(name string) RelationOption {
	return func(c *relationConfig) { c.reverseName = name }
}

// ForeignKey overrides the foreign key column on the owning side.
func ForeignKey(column string) RelationOption {
	return func(c *relationConfig) { c.fkColumn = column }
}

// References overrides the referenced key column, which defaults to
// the referenced table's primary key.
func References(column string) RelationOption {
	return func(c *relationConfig) { c.refColumn = column }
}

// JoinTable overrides the join table of a many to many relation.
func JoinTable(name string) RelationOption {
	return func(c *relationConfig) { c.joinTable = name }
}

// Nullable marks the foreign key as optional; a NULL foreign key
// resolves to no parent instead of an error.
func Nullable() RelationOption {
	return func(c *relationConfig) { c.nullable = true }
}

// ManyToOne is a relationship where many rows of the owning table
// reference one row of another via a foreign key. Defining it installs
// a forward parent accessor on the owning model and a reverse
// collection accessor on the referenced model.
type ManyToOne struct {
	owner       *Model
	ref         *Model
	name        string
	reverseName string
	fkColumn    string
	refColumn   string // empty means the referenced table's primary key
	nullable    bool
}

// BelongsTo wires a many to one relationship from m to ref. Naming
// defaults follow the conventions of the naming strategy: accessor
// named after the referenced table, foreign key "<ref_table>_id",
// reverse accessor "<table>_set". An accessor name the target model
// already uses is a *NameCollisionError, raised here at definition
// time rather than at first use. Self-referential relations (m == ref)
// are supported.
func (m *Model) BelongsTo(ref *Model, opts ...RelationOption) (*ManyToOne, error) {
	cfg := relationConfig{
		name:        ref.tableName,
		reverseName: Naming.ReverseName(m.tableName),
		fkColumn:    Naming.ForeignKeyName(ref.tableName),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	rel := &ManyToOne{
		owner:       m,
		ref:         ref,
		name:        cfg.name,
		reverseName: cfg.reverseName,
		fkColumn:    cfg.fkColumn,
		refColumn:   cfg.refColumn,
		nullable:    cfg.nullable,
	}

	if err := m.claimAccessor(rel.name); err != nil {
		return nil, err
	}
	if m == ref && rel.name == rel.reverseName {
		return nil, &NameCollisionError{Model: ref.name, Name: rel.reverseName}
	}
	if err := ref.claimAccessor(rel.reverseName); err != nil {
		return nil, err
	}

	m.accessors[rel.name] = &accessor{forward: rel}
	ref.accessors[rel.reverseName] = &accessor{reverse: rel}
	return rel, nil
}

// ManyToMany is a join-table-mediated relation exposing an appendable
// collection on both sides. Join rows are created and removed as the
// collections are mutated; the member rows themselves are only removed
// through their own Delete.
type ManyToMany struct {
	left      *Model // defining side
	right     *Model
	leftName  string // accessor on left, yields right records
	rightName string // accessor on right, yields left records
	joinTable string
	leftFK    string // join column referencing left
	rightFK   string // join column referencing right
}

// ManyToMany wires a join-table relation between m and related. The
// join table defaults to "<table>_<related_table>" with one
// "<table>_id" column per side; all three names are configurable since
// existing schemas rarely agree on a convention. Accessor defaults are
// "<related_table>_set" on m and "<table>_set" on related.
func (m *Model) ManyToMany(related *Model, opts ...RelationOption) (*ManyToMany, error) {
	cfg := relationConfig{
		name:        Naming.ReverseName(related.tableName),
		reverseName: Naming.ReverseName(m.tableName),
		fkColumn:    Naming.ForeignKeyName(m.tableName),
		refColumn:   Naming.ForeignKeyName(related.tableName),
		joinTable:   Naming.JoinTableName(m.tableName, related.tableName),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	rel := &ManyToMany{
		left:      m,
		right:     related,
		leftName:  cfg.name,
		rightName: cfg.reverseName,
		joinTable: cfg.joinTable,
		leftFK:    cfg.fkColumn,
		rightFK:   cfg.refColumn,
	}

	if err := m.claimAccessor(rel.leftName); err != nil {
		return nil, err
	}
	if m == related && rel.leftName == rel.rightName {
		return nil, &NameCollisionError{Model: related.name, Name: rel.rightName}
	}
	if err := related.claimAccessor(rel.rightName); err != nil {
		return nil, err
	}

	m.accessors[rel.leftName] = &accessor{m2m: rel, m2mLeft: true}
	related.accessors[rel.rightName] = &accessor{m2m: rel}
	return rel, nil
}

// claimAccessor rejects an accessor name the model already uses for a
// declared field or another relationship.
func (m *Model) claimAccessor(name string) error {
	if _, taken := m.accessors[name]; taken {
		return &NameCollisionError{Model: m.name, Name: name}
	}
	if _, taken := m.declared[name]; taken {
		return &NameCollisionError{Model: m.name, Name: name}
	}
	return nil
}

// Parent resolves a forward many to one accessor: the single record
// the foreign key points at. The result is cached on the record for
// its lifetime; a parent updated in the database afterwards is not
// observed without Refresh. A NULL foreign key on a Nullable relation
// yields (nil, nil); more than one candidate parent is
// ErrForeignKeyNotUnique.
func (r *Record) Parent(name string) (*Record, error) {
	acc := r.model.accessors[name]
	if acc == nil || acc.forward == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrInvalidAccessor, r.model.name, name)
	}
	if cached, ok := r.parents[name]; ok {
		return cached, nil
	}

	rel := acc.forward
	refCol, err := rel.referencedColumn()
	if err != nil {
		return nil, err
	}

	fkValue := r.values[rel.fkColumn]
	if fkValue == nil {
		if rel.nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("%s.%s is null: %w", r.model.tableName, rel.fkColumn, ErrRecordNotFound)
	}

	parents, err := rel.ref.Select(fmt.Sprintf("%s = ?", refCol), fkValue).Slice(0, 2).All()
	if err != nil {
		return nil, err
	}
	switch len(parents) {
	case 0:
		return nil, fmt.Errorf("%s: %w", rel.ref.name, ErrRecordNotFound)
	case 1:
	default:
		return nil, fmt.Errorf("%s.%s: %w", r.model.tableName, rel.fkColumn, ErrForeignKeyNotUnique)
	}

	if r.parents == nil {
		r.parents = map[string]*Record{}
	}
	r.parents[name] = parents[0]
	return parents[0], nil
}

// Collection resolves a reverse or many to many accessor into a fresh
// RelatedSet filtered for this record. The set re-queries on every
// materialization, so it always reflects the stored rows.
func (r *Record) Collection(name string) (*RelatedSet, error) {
	acc := r.model.accessors[name]
	if acc == nil || acc.forward != nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrInvalidAccessor, r.model.name, name)
	}

	if acc.m2m != nil {
		return acc.m2m.collection(r, acc.m2mLeft)
	}

	rel := acc.reverse
	refCol, err := rel.referencedColumn()
	if err != nil {
		return nil, err
	}
	key := r.values[refCol]
	qs := rel.owner.Select(fmt.Sprintf("%s = ?", rel.fkColumn), key)
	return &RelatedSet{QuerySet: qs, parent: r, m2o: rel}, nil
}

// referencedColumn resolves the referenced key column, defaulting to
// the referenced table's primary key.
func (rel *ManyToOne) referencedColumn() (string, error) {
	if rel.refColumn != "" {
		return rel.refColumn, nil
	}
	meta, err := rel.ref.Meta()
	if err != nil {
		return "", err
	}
	if meta.PrimaryKey == nil {
		return "", fmt.Errorf("table %s: %w", rel.ref.tableName, errNoPrimaryKey)
	}
	return meta.PrimaryKey.Name, nil
}

func (rel *ManyToMany) collection(r *Record, left bool) (*RelatedSet, error) {
	target, targetFK, ownFK := rel.right, rel.rightFK, rel.leftFK
	if !left {
		target, targetFK, ownFK = rel.left, rel.leftFK, rel.rightFK
	}
	meta, err := target.Meta()
	if err != nil {
		return nil, err
	}
	if meta.PrimaryKey == nil {
		return nil, fmt.Errorf("table %s: %w", target.tableName, errNoPrimaryKey)
	}

	qs := target.Select(fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s = ?)",
		meta.PrimaryKey.Name, targetFK, rel.joinTable, ownFK), r.PK())
	return &RelatedSet{QuerySet: qs, parent: r, m2m: rel, m2mTargetFK: targetFK, m2mOwnFK: ownFK}, nil
}

// RelatedSet is the collection side of a relationship: a QuerySet
// bound to a parent record, with mutation helpers.
type RelatedSet struct {
	*QuerySet
	parent *Record

	m2o *ManyToOne

	m2m         *ManyToMany
	m2mTargetFK string
	m2mOwnFK    string
}

// Append creates a new related record, pre-linked to the parent, and
// persists it immediately.
func (rs *RelatedSet) Append(values Values) (*Record, error) {
	if rs.m2m != nil {
		rec, err := rs.model.Create(values)
		if err != nil {
			return nil, err
		}
		if err := rs.Add(rec); err != nil {
			return nil, err
		}
		return rec, nil
	}

	linked := make(Values, len(values)+1)
	for k, v := range values {
		linked[k] = v
	}
	refCol, err := rs.m2o.referencedColumn()
	if err != nil {
		return nil, err
	}
	linked[rs.m2o.fkColumn] = rs.parent.values[refCol]
	return rs.model.Create(linked)
}

// Add links an already persisted record to the parent: a join row for
// many to many, a foreign key update for many to one.
func (rs *RelatedSet) Add(rec *Record) error {
	if rs.m2m != nil {
		s, err := session()
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)",
			rs.m2m.joinTable, rs.m2mOwnFK, rs.m2mTargetFK)
		if _, err := s.exec(stmt, []interface{}{rs.parent.PK(), rec.PK()}); err != nil {
			return fmt.Errorf("insert into %s: %w", rs.m2m.joinTable, err)
		}
		return nil
	}

	refCol, err := rs.m2o.referencedColumn()
	if err != nil {
		return err
	}
	if err := rec.Set(rs.m2o.fkColumn, rs.parent.values[refCol]); err != nil {
		return err
	}
	return rec.Save()
}

// Remove unlinks a record from the parent without deleting it: the
// join row for many to many, a NULLed foreign key for a nullable many
// to one.
func (rs *RelatedSet) Remove(rec *Record) error {
	if rs.m2m != nil {
		s, err := session()
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
			rs.m2m.joinTable, rs.m2mOwnFK, rs.m2mTargetFK)
		if _, err := s.exec(stmt, []interface{}{rs.parent.PK(), rec.PK()}); err != nil {
			return fmt.Errorf("delete from %s: %w", rs.m2m.joinTable, err)
		}
		return nil
	}

	if !rs.m2o.nullable {
		return fmt.Errorf("%s.%s is not nullable", rs.model.tableName, rs.m2o.fkColumn)
	}
	if err := rec.Set(rs.m2o.fkColumn, nil); err != nil {
		return err
	}
	return rec.Save()
}
