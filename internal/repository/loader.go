package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/acordao-extractor/constants"
	"github.com/joseph-ayodele/acordao-extractor/internal/artifact"
	"github.com/joseph-ayodele/acordao-extractor/internal/common"
	"github.com/joseph-ayodele/acordao-extractor/internal/entity"
)

// Table names.
const (
	TableDecisions  = "acordaos"
	TableItems      = "itens_deliberacao"
	TableExcerpts   = "trechos_identificados"
	TableLegalBases = "fundamentacao_legal"
)

// DefaultItemKind fills deliberation items that come without a kind.
const DefaultItemKind = "Não especificado"

// FileLoad reports one structured artifact.
type FileLoad struct {
	File     string
	Name     string
	Items    int
	Excerpts int
	Err      error
}

// LoadReport summarizes a directory load.
type LoadReport struct {
	Loaded int
	Failed int
	Files  []FileLoad
}

// Loader copies structured artifacts into the relational store.
type Loader struct {
	db     *DB
	logger *slog.Logger
}

func NewLoader(db *DB, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{db: db, logger: logger}
}

// LoadDir loads every current structured artifact in dir. Backups, temp
// copies and unreadable files are reported per file; the loop continues.
func (l *Loader) LoadDir(ctx context.Context, dir string) (LoadReport, error) {
	var rep LoadReport
	entries, err := os.ReadDir(dir)
	if err != nil {
		return rep, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && artifact.IsCurrentStructured(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res := l.LoadFile(ctx, filepath.Join(dir, name))
		if res.Err != nil {
			rep.Failed++
			l.logger.Warn("load.file.failed", "file", name, "error", res.Err)
		} else {
			rep.Loaded++
		}
		rep.Files = append(rep.Files, res)
	}
	l.logger.Info("load.dir.done", "dir", dir, "loaded", rep.Loaded, "failed", rep.Failed)
	return rep, nil
}

// LoadFile replaces the decision stored for this artifact with its contents.
func (l *Loader) LoadFile(ctx context.Context, path string) FileLoad {
	base := filepath.Base(path)
	res := FileLoad{File: path, Name: strings.TrimSuffix(base, constants.StructuredExt) + "." + constants.PDFExt}

	b, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		return res
	}
	var rec entity.Decision
	if err := json.Unmarshal(b, &rec); err != nil {
		res.Err = common.NewAppError("LOAD_ERROR", "decode "+base, errors.Join(common.ErrInvalidInput, err))
		return res
	}
	if len(rec.Items) == 0 {
		res.Err = common.NewAppError("LOAD_ERROR", base+" has no deliberation items", common.ErrInvalidInput)
		return res
	}

	res.Items = len(rec.Items)
	res.Excerpts = rec.ExcerptCount()
	if err := l.Replace(ctx, res.Name, &rec); err != nil {
		res.Err = err
		return res
	}
	l.logger.Debug("load.file.done", "file", base, "items", res.Items, "excerpts", res.Excerpts)
	return res
}

// Replace deletes any decision stored under name and inserts rec in one
// transaction. Child rows go with the parent through ON DELETE CASCADE.
func (l *Loader) Replace(ctx context.Context, name string, rec *entity.Decision) (err error) {
	tx, err := l.db.SQL().BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("LOAD_ERROR", "begin transaction", errors.Join(common.ErrDatabase, err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	b := entsql.Dialect(l.db.Dialect())
	q, args := b.Delete(TableDecisions).Where(entsql.EQ("nome_arquivo", name)).Query()
	if _, err = tx.ExecContext(ctx, q, args...); err != nil {
		return wrapDB("delete previous "+name, err)
	}

	decisionID, err := l.insert(ctx, tx, b.Insert(TableDecisions).
		Columns("nome_arquivo", "numero_acordao", "numero_processo", "data_sessao", "orgao", "municipio", "exercicio", "responsavel").
		Values(name, rec.Number, rec.Process, rec.SessionDate, rec.Body, rec.City, rec.FiscalYear, strings.Join(rec.Responsible, ", ")))
	if err != nil {
		return wrapDB("insert decision", err)
	}

	for _, item := range rec.Items {
		kind := item.Kind
		if strings.TrimSpace(kind) == "" {
			kind = DefaultItemKind
		}
		itemID, err := l.insert(ctx, tx, b.Insert(TableItems).
			Columns("tipo", "descricao", "acordao_id").
			Values(kind, item.Description, decisionID))
		if err != nil {
			return wrapDB("insert item", err)
		}
		for _, ex := range item.Excerpts {
			exID, err := l.insert(ctx, tx, b.Insert(TableExcerpts).
				Columns("item_deliberacao_id", "trecho", "irregularidade", "relevante_para_indice",
					"tema_irregularidade", "codigo_irregularidade", "tipologia_irregularidade",
					"descricao", "justificativa_tipologia").
				Values(itemID, ex.Text, ex.Irregularity, ex.RelevantForIndex,
					ex.IrregularityTheme, ex.IrregularityCode, ex.IrregularityTypology,
					ex.Description, ex.TypologyJustification))
			if err != nil {
				return wrapDB("insert excerpt", err)
			}
			for _, lb := range ex.LegalBasis {
				if _, err := l.insert(ctx, tx, b.Insert(TableLegalBases).
					Columns("trecho_identificado_id", "norma", "artigo", "descricao").
					Values(exID, lb.Norm, lb.Article, lb.Description)); err != nil {
					return wrapDB("insert legal basis", err)
				}
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return wrapDB("commit", err)
	}
	return nil
}

// insert runs the statement and returns the new row id.
func (l *Loader) insert(ctx context.Context, tx *sql.Tx, ins *entsql.InsertBuilder) (int64, error) {
	if l.db.Dialect() == dialect.Postgres {
		q, args := ins.Returning("id").Query()
		var id int64
		err := tx.QueryRowContext(ctx, q, args...).Scan(&id)
		return id, err
	}
	q, args := ins.Query()
	r, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return r.LastInsertId()
}

// CountDecisions returns the number of stored decisions.
func (l *Loader) CountDecisions(ctx context.Context) (int, error) {
	q, args := entsql.Dialect(l.db.Dialect()).Select(entsql.Count("*")).From(entsql.Table(TableDecisions)).Query()
	var n int
	if err := l.db.SQL().QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, wrapDB("count decisions", err)
	}
	return n, nil
}

func wrapDB(msg string, err error) error {
	return common.NewAppError("LOAD_ERROR", msg, errors.Join(common.ErrDatabase, err))
}
