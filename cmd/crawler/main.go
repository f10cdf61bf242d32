package main

import (
	"Tuner/internal/database"
	"Tuner/internal/helpers"
	"Tuner/internal/logging"
	"Tuner/internal/models"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

const outputDir = "./output"

var (
	powerPairRe    = regexp.MustCompile(`(?i)(\d+)\s*(?:hp|bhp|ps|cv)\s*/\s*(\d+)\s*nm`)
	parenthesesRe  = regexp.MustCompile(`\(([^()]+)\)\s*$`)
	ecuUnlockRe    = regexp.MustCompile(`(?i)\becu\s+unlock|\bunlock(?:ed|ing)?\s+(?:of\s+)?(?:the\s+)?ecu\b`)
	cpcUpgradeRe   = regexp.MustCompile(`(?i)\bcpc\s+(?:upgrade|update)|\b(?:upgrade|update)\s+(?:of\s+)?(?:the\s+)?cpc\b`)
	ecuMentionRe   = regexp.MustCompile(`(?i)\b(?:ecu|cpc)\b`)
	sentenceEndRe  = regexp.MustCompile(`[.!?]\s+`)
	engineTypeKeys = []struct {
		engineType string
		re         *regexp.Regexp
	}{
		{"Hybrid", regexp.MustCompile(`(?i)hybrid|\bphev\b`)},
		{"Electric", regexp.MustCompile(`(?i)\belectric\b|\bev\b`)},
		{"Diesel", regexp.MustCompile(`(?i)diesel|\btdi\b|\bcdi\b|\bcrdi\b|\bdci\b|\bhdi\b|\bbluehdi\b|\b\d{3}d\b`)},
		{"Petrol", regexp.MustCompile(`(?i)petrol|gasoline|\btfsi\b|\btsi\b|\bfsi\b|\bgti\b|\bvtec\b|\b\d{3}i\b`)},
	}
)

// Instantiates a Colly collector and configures it.
func createCollector(cfg helpers.Config) (*colly.Collector, error) {
	options := []colly.CollectorOption{colly.AllowURLRevisit()}
	if len(cfg.AllowedDomains) > 0 {
		options = append(options, colly.AllowedDomains(cfg.AllowedDomains...))
	}
	c := colly.NewCollector(options...)

	parallelism := cfg.CrawlParallelism
	if parallelism < 1 {
		parallelism = 1
	}
	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
		Delay:       50 * time.Millisecond,
		RandomDelay: 50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot set limit rule: %w", err)
	}
	return c, nil
}

func configureDefaultHandlers(c *colly.Collector, logger *slog.Logger) {
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (compatible; TunerCatalogBot/1.0)")
		logger.Debug("visiting", "url", r.URL.String())
	})

	c.OnResponse(func(r *colly.Response) {
		logger.Debug("response received", "url", r.Request.URL.String(), "status", r.StatusCode)
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.Warn("request failed", "url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})
}

// collectEngines visits a listing page and every engine page it links to.
func collectEngines(c *colly.Collector, listingUrl string, logger *slog.Logger) ([]models.RawEngine, error) {
	var (
		mu      sync.Mutex
		engines []models.RawEngine
	)

	// Cloning the collector so engine pages get their own handlers.
	engineCollector := c.Clone()
	configureDefaultHandlers(engineCollector, logger)
	engineCollector.OnHTML("body", func(e *colly.HTMLElement) {
		crumbs := e.ChildTexts("ul.breadcrumb li")
		if len(crumbs) < 4 {
			logger.Warn("engine page without full breadcrumb", "url", e.Request.URL.String(), "crumbs", len(crumbs))
			return
		}
		engine := models.RawEngine{
			Brand:       crumbs[0],
			Model:       crumbs[1],
			Chassis:     crumbs[2],
			Engine:      crumbs[3],
			Description: e.ChildText(".engine-description"),
			Url:         e.Request.URL.String(),
		}
		e.ForEach("table.stages tr.stage", func(_ int, row *colly.HTMLElement) {
			engine.RawStages = append(engine.RawStages, models.RawStage{
				Name:  row.ChildText("td.name"),
				Stock: row.ChildText("td.stock"),
				Tuned: row.ChildText("td.tuned"),
				Notes: row.ChildText("td.notes"),
			})
		})
		mu.Lock()
		engines = append(engines, engine)
		mu.Unlock()
	})

	c.OnHTML("a.engine-link[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if err := engineCollector.Visit(link); err != nil {
			logger.Warn("cannot visit engine page", "url", link, "error", err)
		}
	})

	if err := c.Visit(listingUrl); err != nil {
		return nil, fmt.Errorf("cannot visit listing page %s: %w", listingUrl, err)
	}
	// Wait until all threads have finished.
	c.Wait()
	engineCollector.Wait()
	return engines, nil
}

func main() {
	if err := helpers.ReadConfig(os.Getenv("TUNER_CONFIG")); err != nil {
		slog.Error("cannot read configuration", "error", err)
		os.Exit(1)
	}
	cfg := helpers.Load()
	logger := logging.NewLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	handler, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseConnStr, logger)
	if err != nil {
		logger.Error("cannot connect to database", "error", err)
		os.Exit(1)
	}
	// Close connection after everything has been sent to database.
	defer handler.Close()
	if err := handler.Migrate(); err != nil {
		logger.Error("cannot migrate database", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.Error("cannot create output directory", "error", err)
		os.Exit(1)
	}

	// Iterate over the configured sources.
	for source, listingUrl := range cfg.CrawlSources {
		c, err := createCollector(cfg)
		if err != nil {
			logger.Error("cannot create collector", "error", err)
			os.Exit(1)
		}
		configureDefaultHandlers(c, logger)

		rawEngines, err := collectEngines(c, listingUrl, logger)
		if err != nil {
			logger.Error("crawl failed", "source", source, "error", err)
			continue
		}
		catalogs := convertRawEngines(rawEngines, logger)

		if err := dumpCatalogs(filepath.Join(outputDir, source+"_data.json"), catalogs); err != nil {
			logger.Error("cannot dump catalog", "source", source, "error", err)
		}
		if err := transferCatalogsToDatabase(handler, catalogs, logger); err != nil {
			logger.Error("cannot write catalog to database", "source", source, "error", err)
			os.Exit(1)
		}
	}
}

func dumpCatalogs(fName string, catalogs []models.Catalog) error {
	file, err := os.Create(fName)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(catalogs)
}

// transferCatalogsToDatabase writes the parsed engines and their stages there.
func transferCatalogsToDatabase(handler *database.SQLHandler, catalogs []models.Catalog, logger *slog.Logger) error {
	for _, catalog := range catalogs {
		if err := handler.InsertCatalog(catalog); err != nil {
			return err
		}
		logger.Info("stored engine", "brand", catalog.Brand.Name, "model", catalog.Model.Name,
			"engine", catalog.Engine.Name, "stages", len(catalog.Stages))
	}
	return nil
}

// convertRawEngines converts scraped engine pages, dropping the ones that cannot be parsed.
func convertRawEngines(rawEngines []models.RawEngine, logger *slog.Logger) []models.Catalog {
	logger.Info("converting raw engines", "count", len(rawEngines))
	catalogs := []models.Catalog{}
	for _, rawEngine := range rawEngines {
		catalog, err := processRawEngine(rawEngine, logger)
		if err != nil {
			logger.Warn("skipping engine page", "url", rawEngine.Url, "error", err)
			continue
		}
		catalogs = append(catalogs, catalog)
	}
	return catalogs
}

// processRawEngine parses one engine page into catalog records.
func processRawEngine(raw models.RawEngine, logger *slog.Logger) (models.Catalog, error) {
	brandName := standardizeSpaces(raw.Brand)
	modelName := standardizeSpaces(raw.Model)
	chassisName := standardizeSpaces(raw.Chassis)
	engineLabel := standardizeSpaces(raw.Engine)
	if brandName == "" || modelName == "" || chassisName == "" || engineLabel == "" {
		return models.Catalog{}, fmt.Errorf("incomplete vehicle path %q / %q / %q / %q", brandName, modelName, chassisName, engineLabel)
	}
	description := standardizeSpaces(raw.Description)

	var catalog models.Catalog
	catalog.Brand = models.Brand{Id: generateId(brandName), Name: brandName}
	catalog.Model = models.Model{Id: generateId(brandName, modelName), BrandId: catalog.Brand.Id, Name: modelName}
	catalog.Type = models.ChassisType{Id: generateId(brandName, modelName, chassisName), ModelId: catalog.Model.Id, Name: chassisName}
	catalog.Engine = models.EngineVariant{
		Id:          generateId(brandName, modelName, chassisName, engineLabel),
		TypeId:      catalog.Type.Id,
		Name:        extractEngineName(engineLabel),
		Description: description,
		Type:        extractEngineType(engineLabel),
	}
	if catalog.Engine.Type == "" {
		catalog.Engine.Type = extractEngineType(description)
	}

	catalog.Stages = []models.Stage{}
	for i, rawStage := range raw.RawStages {
		stageName := standardizeSpaces(rawStage.Name)
		stockHp, stockNm, err := parsePowerPair(rawStage.Stock)
		if err != nil {
			logger.Warn("cannot parse stock power", "url", raw.Url, "stage", stageName, "value", rawStage.Stock, "error", err)
			continue
		}
		tunedHp, tunedNm, err := parsePowerPair(rawStage.Tuned)
		if err != nil {
			logger.Warn("cannot parse tuned power", "url", raw.Url, "stage", stageName, "value", rawStage.Tuned, "error", err)
			continue
		}
		notes := standardizeSpaces(rawStage.Notes)
		catalog.Stages = append(catalog.Stages, models.Stage{
			// Row position keeps repeated stage names on one page apart.
			Id:         generateId(strconv.FormatInt(catalog.Engine.Id, 10), strconv.Itoa(i), stageName),
			EngineId:   catalog.Engine.Id,
			StageName:  stageName,
			StockHp:    stockHp,
			StockNm:    stockNm,
			TunedHp:    tunedHp,
			TunedNm:    tunedNm,
			Notes:      notes,
			EcuNotes:   extractEcuNotes(notes),
			EcuUnlock:  ecuUnlockRe.MatchString(notes),
			CpcUpgrade: cpcUpgradeRe.MatchString(notes),
		})
	}
	return catalog, nil
}

func standardizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parsePowerPair reads a "150 HP / 320 Nm" figure.
func parsePowerPair(s string) (int, int, error) {
	matches := powerPairRe.FindStringSubmatch(s)
	if len(matches) == 0 {
		return 0, 0, fmt.Errorf("no power figure found in %q", s)
	}
	hp, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, 0, fmt.Errorf("cannot parse horsepower: %w", err)
	}
	nm, err := strconv.Atoi(matches[2])
	if err != nil {
		return 0, 0, fmt.Errorf("cannot parse torque: %w", err)
	}
	return hp, nm, nil
}

// extractEngineName drops a trailing parenthesised tag from the engine label.
func extractEngineName(s string) string {
	return strings.TrimSpace(parenthesesRe.ReplaceAllString(s, ""))
}

// extractEngineType finds the engine type tag. A trailing parenthesised tag
// wins; otherwise well-known engine codes and fuel words are matched.
func extractEngineType(s string) string {
	if matches := parenthesesRe.FindStringSubmatch(strings.TrimSpace(s)); len(matches) == 2 {
		tag := standardizeSpaces(matches[1])
		for _, key := range engineTypeKeys {
			if key.re.MatchString(tag) {
				return key.engineType
			}
		}
		return tag
	}
	for _, key := range engineTypeKeys {
		if key.re.MatchString(s) {
			return key.engineType
		}
	}
	return ""
}

// extractEcuNotes keeps the sentences of notes that mention the ECU or CPC.
func extractEcuNotes(notes string) string {
	var kept []string
	for _, sentence := range splitSentences(notes) {
		if ecuMentionRe.MatchString(sentence) {
			kept = append(kept, sentence)
		}
	}
	return strings.Join(kept, " ")
}

func splitSentences(s string) []string {
	var sentences []string
	rest := strings.TrimSpace(s)
	for rest != "" {
		loc := sentenceEndRe.FindStringIndex(rest)
		if loc == nil {
			sentences = append(sentences, rest)
			break
		}
		sentences = append(sentences, strings.TrimSpace(rest[:loc[0]+1]))
		rest = strings.TrimSpace(rest[loc[1]:])
	}
	return sentences
}

// generateId derives a stable identifier from the record's path in the catalog.
func generateId(pathParts ...string) int64 {
	h := fnv.New32a()
	for i, part := range pathParts {
		if i > 0 {
			h.Write([]byte{'/'})
		}
		h.Write([]byte(strings.ToLower(part)))
	}
	return int64(h.Sum32())
}
