package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/salesrace/internal/ledger"
	dbbuilder "github.com/godilite/salesrace/pkg/database"
)

const ledgerCSV = `order_date,a,b,c,region,province,d,e,f,g,amount,money
2023-01-05,,,,East,Jiangsu,,,,,1,100
2023-02-01,,,,West,Sichuan,,,,,3,300
2023-03-10,,,,East,Jiangsu,,,,,1,50
`

func writeFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func seedSQLite(t testing.TB, table string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := dbbuilder.New(
		dbbuilder.WithDriver("sqlite3"),
		dbbuilder.WithDataSource(path),
		dbbuilder.WithMaxOpenConns(1),
	)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE ` + table + ` (
		order_date TEXT, c1 TEXT, c2 TEXT, c3 TEXT, region TEXT, province TEXT,
		c6 TEXT, c7 TEXT, c8 TEXT, c9 TEXT, amount REAL, money REAL
	);
	INSERT INTO ` + table + ` VALUES
		('2023-01-05', '', '', '', 'East', 'Jiangsu', '', '', '', '', 1, 100),
		('2023-02-01', '', '', '', 'West', 'Sichuan', '', '', '', '', 3, 300);`)
	require.NoError(t, err)
	return path
}

func TestResolver_Files(t *testing.T) {
	r := NewResolver(WithResolverLogger(zap.NewNop()))
	ctx := context.Background()

	t.Run("csv", func(t *testing.T) {
		src, err := r.Resolve(ctx, writeFile(t, "sales.csv", ledgerCSV))
		require.NoError(t, err)
		assert.IsType(t, &ledger.CSVSource{}, src)

		table, err := src.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, table.Rows, 3)
	})

	t.Run("tsv", func(t *testing.T) {
		src, err := r.Resolve(ctx, "sales.tsv")
		require.NoError(t, err)
		assert.IsType(t, &ledger.CSVSource{}, src)
	})

	t.Run("xlsx keeps the sheet", func(t *testing.T) {
		src, err := NewResolver(WithSheet("2023")).Resolve(ctx, "sales.xlsx")
		require.NoError(t, err)
		assert.Equal(t, "sales.xlsx#2023", src.Name())
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := r.Resolve(ctx, "sales.pdf")
		assert.ErrorIs(t, err, ledger.ErrUnsupportedSource)
	})
}

func TestResolver_SQLite(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(WithDriver("sqlite3"))

	t.Run("default table", func(t *testing.T) {
		path := seedSQLite(t, "sales")
		src, err := r.Resolve(ctx, "sqlite://"+path)
		require.NoError(t, err)
		assert.Equal(t, "sqlite://"+path+"?table=sales", src.Name())

		table, err := src.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "region", table.Header[ledger.ColRegion])
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "West", table.Rows[1][ledger.ColRegion])
	})

	t.Run("named table", func(t *testing.T) {
		path := seedSQLite(t, "orders_2023")
		src, err := r.Resolve(ctx, "sqlite://"+path+"?table=orders_2023")
		require.NoError(t, err)

		table, err := src.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, table.Rows, 2)
	})

	t.Run("invalid table name", func(t *testing.T) {
		_, err := r.Resolve(ctx, "sqlite://ledger.db?table=1sales")
		assert.ErrorIs(t, err, ledger.ErrInvalidTable)
	})

	t.Run("no path", func(t *testing.T) {
		_, err := r.Resolve(ctx, "sqlite://?table=sales")
		assert.ErrorIs(t, err, ledger.ErrUnsupportedSource)
	})

	t.Run("missing database file", func(t *testing.T) {
		src, err := r.Resolve(ctx, "sqlite://"+filepath.Join(t.TempDir(), "absent.db"))
		require.NoError(t, err)
		_, err = src.Load(ctx)
		assert.Error(t, err)
	})
}

func TestKeyframeService_SQLiteLedger(t *testing.T) {
	path := seedSQLite(t, "sales")
	svc := NewKeyframeService(NewResolver(), zap.NewNop(), WithLocation(time.UTC))

	race, err := svc.BarRace(context.Background(), "sqlite://"+path)
	require.NoError(t, err)
	require.Len(t, race.Keyframes, 2)
	assert.Equal(t, "West", race.Keyframes[1].Summary.MaxCumSumCategory)
	assert.Equal(t, 300.0, race.Keyframes[1].Summary.MaxCumSumValue)
}

func TestResolver_DataRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sales.csv"), []byte(ledgerCSV), 0o644))
	outside := writeFile(t, "secret.txt", "order_date,a,b,c,region\n2023-01-01,,,,TOKEN\n")
	trusted := writeFile(t, "configured.csv", ledgerCSV)

	r := NewResolver(WithRoot(root), WithAllowed(trusted, ""))

	t.Run("relative refs resolve under the root", func(t *testing.T) {
		src, err := r.Resolve(ctx, "sales.csv")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "sales.csv"), src.Name())

		table, err := src.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, table.Rows, 3)
	})

	t.Run("refs outside the root are rejected", func(t *testing.T) {
		for _, ref := range []string{
			outside,
			"../" + filepath.Base(outside),
			"nested/../../secret.csv",
			"/etc/ledger.xlsx",
			"sqlite://" + filepath.Join(t.TempDir(), "ledger.db"),
			"sqlite://../ledger.db?table=sales",
		} {
			_, err := r.Resolve(ctx, ref)
			assert.ErrorIs(t, err, ledger.ErrUnsupportedSource, ref)
		}
	})

	t.Run("allowed refs are used as given", func(t *testing.T) {
		src, err := r.Resolve(ctx, trusted)
		require.NoError(t, err)
		assert.Equal(t, trusted, src.Name())
	})

	t.Run("sqlite under the root", func(t *testing.T) {
		path := seedSQLite(t, "sales")
		require.NoError(t, os.Rename(path, filepath.Join(root, "ledger.db")))

		src, err := r.Resolve(ctx, "sqlite://ledger.db")
		require.NoError(t, err)
		table, err := src.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, table.Rows, 2)
	})
}

func TestKeyframeService_SQLiteDateColumnMatchesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dated.db")
	db, err := dbbuilder.New(
		dbbuilder.WithDriver("sqlite3"),
		dbbuilder.WithDataSource(path),
		dbbuilder.WithMaxOpenConns(1),
	)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE sales (
		order_date DATE, c1 TEXT, c2 TEXT, c3 TEXT, region TEXT, province TEXT,
		c6 TEXT, c7 TEXT, c8 TEXT, c9 TEXT, amount REAL, money REAL
	);
	INSERT INTO sales VALUES
		('2023-02-01', '', '', '', 'East', 'Jiangsu', '', '', '', '', 1, 100),
		('2023-03-01 00:00:00', '', '', '', 'West', 'Sichuan', '', '', '', '', 1, 50);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	csv := writeFile(t, "dated.csv", `order_date,a,b,c,region,province,d,e,f,g,amount,money
2023-02-01,,,,East,Jiangsu,,,,,1,100
2023-03-01 00:00:00,,,,West,Sichuan,,,,,1,50
`)

	west := time.FixedZone("UTC-5", -5*60*60)
	svc := NewKeyframeService(NewResolver(), zap.NewNop(), WithLocation(west))
	ctx := context.Background()

	fromDB, err := svc.Sequence(ctx, "sqlite://"+path)
	require.NoError(t, err)
	fromCSV, err := svc.Sequence(ctx, csv)
	require.NoError(t, err)

	want := []time.Time{
		time.Date(2023, time.February, 1, 0, 0, 0, 0, west),
		time.Date(2023, time.March, 1, 0, 0, 0, 0, west),
	}
	assert.Equal(t, want, fromDB.Periods())
	assert.Equal(t, fromCSV.Periods(), fromDB.Periods())
}
