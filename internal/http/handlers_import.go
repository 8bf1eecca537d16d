package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"duobudget/internal/aggregate"
	"duobudget/internal/core"
	"duobudget/internal/importer"
	"duobudget/internal/log"
	"duobudget/internal/sheets"
)

// sheetsTimeout bounds a single spreadsheet call.
const sheetsTimeout = 15 * time.Second

var errNoRows = errors.New("no valid transactions found")

type importResponse struct {
	Imported int             `json:"imported"`
	Result   importer.Result `json:"result"`
}

// importRows normalizes rows and adds the accepted drafts as one batch.
// Nothing is added when no row is usable or when the batch is rejected.
func (s *Server) importRows(ctx context.Context, rows [][]string, source string) (importResponse, error) {
	drafts, res := importer.Normalize(rows)
	logger := log.FromContext(ctx)
	if len(drafts) == 0 {
		logger.WarnContext(ctx, "Import found no usable rows",
			log.FieldSource, source,
			log.FieldSkipped, len(res.Skipped))
		return importResponse{Result: res}, errNoRows
	}

	n, err := s.data.AddTransactions(ctx, drafts)
	if err != nil {
		return importResponse{Result: res}, err
	}
	s.metrics.mutated()
	s.metrics.importedRows(n)
	logger.InfoContext(ctx, "Import completed",
		log.FieldOperation, log.OpImport,
		log.FieldSource, source,
		log.FieldCount, n,
		log.FieldSkipped, len(res.Skipped))
	return importResponse{Imported: n, Result: res}, nil
}

func (s *Server) writeImport(w http.ResponseWriter, r *http.Request, resp importResponse, err error) {
	switch {
	case errors.Is(err, errNoRows):
		NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Body(map[string]any{"error": err.Error(), "result": resp.Result}).
			Write(w)
	case err != nil:
		s.fail(w, r, log.OpImport, err)
	default:
		NewJSONResponse().Status(http.StatusCreated).Body(resp).Write(w)
	}
}

// handleImportFile imports a CSV or XLSX upload sent as the multipart
// field "file". The format comes from the "format" field, the file name or
// the content, in that order.
func (s *Server) handleImportFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.fail(w, r, log.OpImport, fmt.Errorf("%w: %v", errMalformed, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, log.OpImport, fmt.Errorf("%w: missing file field", errMalformed))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, log.OpImport, fmt.Errorf("%w: %v", errMalformed, err))
		return
	}

	var format importer.Format
	if v := r.FormValue("format"); v != "" {
		format, err = importer.ParseFormat(v)
	} else {
		format, err = importer.DetectFormat(header.Filename, data)
	}
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}

	rows, err := importer.Read(bytes.NewReader(data), format)
	if err != nil {
		UnprocessableEntityError(fmt.Sprintf("could not read %s file: %v", format, err)).Write(w)
		return
	}
	resp, err := s.importRows(r.Context(), rows, header.Filename)
	s.writeImport(w, r, resp, err)
}

type sheetsRequest struct {
	Spreadsheet string `json:"spreadsheet"`
	Range       string `json:"range"`
}

// handleImportSheets imports the rows of a spreadsheet range. The
// spreadsheet may be given as an identifier or a share URL.
func (s *Server) handleImportSheets(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		ServiceUnavailableError("spreadsheet import is not configured").Write(w)
		return
	}
	var req sheetsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	id, err := sheets.SpreadsheetID(req.Spreadsheet)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sheetsTimeout)
	defer cancel()
	rows, err := s.sheets.ReadRows(ctx, id, sheets.Range(req.Range))
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Spreadsheet read failed",
			log.FieldSource, id,
			log.FieldError, err)
		ErrorResponse(http.StatusBadGateway, "could not read spreadsheet").Write(w)
		return
	}

	resp, err := s.importRows(r.Context(), rows, "sheets:"+id)
	s.writeImport(w, r, resp, err)
}

// handleImportTemplate downloads the import template.
func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	format, err := importer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, log.OpRead, fmt.Errorf("%w: %v", errMalformed, err))
		return
	}

	var buf bytes.Buffer
	if format == importer.FormatCSV {
		err = importer.TemplateCSV(&buf)
	} else {
		err = importer.WriteTemplate(&buf)
	}
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	writeFile(w, format, "transactions_template", buf.Bytes())
}

// handleExport downloads transactions, optionally limited to one period.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := importer.ParseFormat(q.Get("format"))
	if err != nil {
		s.fail(w, r, log.OpRead, fmt.Errorf("%w: %v", errMalformed, err))
		return
	}
	txs, name, err := s.exportSelection(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	var buf bytes.Buffer
	if err := importer.Export(&buf, format, txs); err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	writeFile(w, format, name, buf.Bytes())
}

// handleExportSheets appends transactions to a spreadsheet range.
func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		ServiceUnavailableError("spreadsheet export is not configured").Write(w)
		return
	}
	var req sheetsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	id, err := sheets.SpreadsheetID(req.Spreadsheet)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	txs, _, err := s.exportSelection(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sheetsTimeout)
	defer cancel()
	ref, err := s.sheets.AppendRows(ctx, id, sheets.Range(req.Range), importer.ExportRows(txs))
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Spreadsheet append failed",
			log.FieldSource, id,
			log.FieldError, err)
		ErrorResponse(http.StatusBadGateway, "could not write spreadsheet").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"updatedRange": ref,
		"count":        len(txs),
	}).Write(w)
}

// exportSelection returns the transactions named by the period and key
// query values, newest first, and a file name for them. Without a key
// every transaction is selected.
func (s *Server) exportSelection(r *http.Request) ([]core.Transaction, string, error) {
	params, err := ParsePeriodParams(r.URL.Query())
	if err != nil {
		return nil, "", err
	}
	txs, err := s.data.Transactions(r.Context())
	if err != nil {
		return nil, "", err
	}
	if params.Key == "" {
		aggregate.SortNewestFirst(txs)
		return txs, "transactions", nil
	}
	return aggregate.InPeriod(txs, params.Granularity, params.Key), "transactions_" + params.Key, nil
}

func writeFile(w http.ResponseWriter, format importer.Format, name string, body []byte) {
	contentType := "text/csv; charset=utf-8"
	if format == importer.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	name = strings.ReplaceAll(name, `"`, "")
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
