package mockserver

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/cfo/internal/mockdata"
	"github.com/tensorplex-labs/cfo/pkg/cfoapi"
	"github.com/tensorplex-labs/cfo/pkg/cfoapi/model"
)

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req model.RegisterRequest
	if len(c.Body()) == 0 || sonic.Unmarshal(c.Body(), &req) != nil {
		return c.Status(fiber.StatusBadRequest).JSON(message("No data provided"))
	}
	if req.FullName == "" || req.WorkEmail == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(message("Missing required fields"))
	}

	err := s.users.register(user{
		FullName:    req.FullName,
		WorkEmail:   req.WorkEmail,
		JobTitle:    req.JobTitle,
		CompanyName: req.CompanyName,
	}, req.Password)
	switch {
	case errors.Is(err, errUserExists):
		return c.Status(fiber.StatusBadRequest).JSON(message("User already exists. Try logging in"))
	case err != nil:
		return fmt.Errorf("registration failed: %w", err)
	}

	log.Info().Str("email", req.WorkEmail).Msg("user registered")
	return c.Status(fiber.StatusCreated).JSON(message("User registered successfully"))
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req model.LoginRequest
	if len(c.Body()) == 0 || sonic.Unmarshal(c.Body(), &req) != nil {
		return c.Status(fiber.StatusBadRequest).JSON(message("No data provided"))
	}
	if req.WorkEmail == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(message("Email and password are required"))
	}

	token, err := s.users.login(req.WorkEmail, req.Password)
	if err != nil {
		log.Warn().Str("email", req.WorkEmail).Msg("login rejected")
		return c.Status(fiber.StatusUnauthorized).JSON(message("Invalid Credentials"))
	}
	return c.JSON(model.LoginResponse{AccessToken: token})
}

func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req model.QueryRequest
	if err := sonic.Unmarshal(c.Body(), &req); err != nil || req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(message("Query is required"))
	}
	log.Debug().Any("identity", c.Locals(localIdentity)).Str("query", req.Query).Msg("query received")
	return c.JSON(model.Answer{
		Response:  mockdata.Answer(req.Query),
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile(cfoapi.UploadField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(message("No files passed!"))
	}
	if file.Filename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(message("No file selected!"))
	}
	if !isPDF(file.Filename) {
		return c.Status(fiber.StatusBadRequest).JSON(message("Invalid file type. Only PDFs are allowed."))
	}

	name, err := s.upload.save(file)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	graphs := mockdata.Graphs(name, s.now())
	return c.JSON(model.UploadResult{
		Success:  true,
		Message:  fmt.Sprintf("File %s uploaded successfully!", name),
		Filename: name,
		Graphs:   &graphs,
	})
}

func (s *Server) handleFinancials(c *fiber.Ctx) error {
	return c.JSON(mockdata.Financials())
}

func (s *Server) handleRisks(c *fiber.Ctx) error {
	return c.JSON(mockdata.Risks())
}

func (s *Server) handleMonitoring(c *fiber.Ctx) error {
	return c.JSON(mockdata.Monitoring(queryValues(c)))
}

func (s *Server) handleAnomalies(c *fiber.Ctx) error {
	return c.JSON(mockdata.Anomalies(queryValues(c), s.now()))
}

func (s *Server) handleForecast(c *fiber.Ctx) error {
	f, err := mockdata.Forecast(c.Query("scenario"), c.QueryInt("months", mockdata.DefaultMonths))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(message(err.Error()))
	}
	return c.JSON(f)
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	res := mockdata.Export(c.Query("format"))
	if !res.Success {
		return c.Status(fiber.StatusBadRequest).JSON(res)
	}
	return c.JSON(res)
}

func (s *Server) handleKPIs(c *fiber.Ctx) error {
	report := mockdata.SampleReport()
	return c.JSON(fiber.Map{
		"company_name": report.CompanyName,
		"fiscal_year":  report.FiscalYear,
		"kpis":         mockdata.KPIs(report),
	})
}

func queryValues(c *fiber.Ctx) url.Values {
	v, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return url.Values{}
	}
	return v
}
